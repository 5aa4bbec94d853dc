package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/identity"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/Nymfarious/drumline-auth/pkg/logger"
)

// ClientContext carries request attribution into the sign-in flow.
type ClientContext struct {
	IPAddress string
	UserAgent string
}

// AccountLockedError is returned when an account is under a progressive
// lockout. It carries the remaining wait so handlers can surface it.
type AccountLockedError struct {
	RemainingMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes)
}

func (e *AccountLockedError) Is(target error) bool {
	return target == models.ErrAccountLocked
}

// RateLimitedError is returned when sign-in attempts exceed the short-window
// throttle.
type RateLimitedError struct {
	RetryAfterMinutes int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, try again in %d minutes", e.RetryAfterMinutes)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == models.ErrRateLimited
}

// SignInResult is the outcome of a sign-in attempt. Exactly one of
// SessionToken or ChallengeToken is set: a challenge token means credentials
// passed but a two-factor code is still owed.
type SignInResult struct {
	User              *models.User
	SessionToken      string
	ChallengeToken    string
	RequiresTwoFactor bool
	Device            models.RegisterDeviceResult
}

// SignInService orchestrates the full sign-in sequence: lockout gate, rate
// gate, credential verification, the optional two-factor round trip, then
// device registration and session issuance. Protection bookkeeping degrades
// open so a storage fault never locks every user out.
type SignInService struct {
	provider  identity.Provider
	rateLimit *RateLimitService
	lockout   *LockoutService
	twoFactor *TwoFactorService
	devices   *DeviceService
	tokens    *auth.TokenManager
	timing    *auth.TimingDelay
	events    *SecurityEventService
	audit     *logger.AuditLogger
	logger    *slog.Logger
}

// NewSignInService creates a new SignInService
func NewSignInService(
	provider identity.Provider,
	rateLimit *RateLimitService,
	lockout *LockoutService,
	twoFactor *TwoFactorService,
	devices *DeviceService,
	tokens *auth.TokenManager,
	timing *auth.TimingDelay,
	events *SecurityEventService,
	audit *logger.AuditLogger,
	log *slog.Logger,
) *SignInService {
	return &SignInService{
		provider:  provider,
		rateLimit: rateLimit,
		lockout:   lockout,
		twoFactor: twoFactor,
		devices:   devices,
		tokens:    tokens,
		timing:    timing,
		events:    events,
		audit:     audit,
		logger:    log,
	}
}

// SignIn runs the protection gates and credential check. The lockout and
// rate gates are evaluated before the password ever reaches the identity
// provider, so a gated attempt costs no credential verification. Gate
// rejections and credential failures all leave through the equalized timing
// path.
func (s *SignInService) SignIn(ctx context.Context, email, password string, device *models.DeviceInfo, client ClientContext) (*SignInResult, error) {
	start := time.Now()

	if status := s.lockout.IsAccountLocked(ctx, email); status.Locked {
		s.auditAttempt(email, "", client, false, "account_locked")
		s.timing.WaitFrom(start, false)
		return nil, &AccountLockedError{RemainingMinutes: status.RemainingMinutes}
	}

	if status := s.rateLimit.Check(email); !status.Allowed {
		s.auditAttempt(email, "", client, false, "rate_limited")
		s.timing.WaitFrom(start, false)
		return nil, &RateLimitedError{RetryAfterMinutes: status.RetryAfterMinutes}
	}

	user, err := s.provider.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, models.ErrIdentityUnavailable) {
			// Provider outage, not a credential failure. Do not
			// penalize the account.
			s.logger.Error("identity provider unavailable", slog.Any("error", err))
			s.timing.WaitFrom(start, false)
			return nil, models.ErrIdentityUnavailable
		}

		s.recordFailure(ctx, email, client)
		s.auditAttempt(email, "", client, false, "invalid_credentials")
		s.timing.WaitFrom(start, false)
		return nil, models.ErrInvalidCredentials
	}

	enabled, err := s.twoFactor.IsEnabled(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to check two-factor status",
			slog.String("user_id", user.ID), slog.Any("error", err))
		s.timing.WaitFrom(start, false)
		return nil, models.ErrInternalServer
	}

	if enabled {
		// The provider already minted a session during credential
		// verification; revoke it so no session exists until the
		// two-factor code lands.
		if err := s.provider.SignOut(ctx, user.ID); err != nil {
			s.logger.Error("failed to revoke provider session pending 2FA",
				slog.String("user_id", user.ID), slog.Any("error", err))
		}

		challenge, err := s.tokens.GenerateChallengeToken(user.ID, user.Email)
		if err != nil {
			s.logger.Error("failed to generate challenge token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditAttempt(email, user.ID, client, true, "2fa_required")
		return &SignInResult{
			User:              user,
			ChallengeToken:    challenge,
			RequiresTwoFactor: true,
		}, nil
	}

	return s.completeSignIn(ctx, user, device, client, start)
}

// VerifyTwoFactor finishes a sign-in that stopped at the two-factor gate.
// The challenge token proves the earlier credential check; the code proves
// the second factor.
func (s *SignInService) VerifyTwoFactor(ctx context.Context, challengeToken, code string, device *models.DeviceInfo, client ClientContext) (*SignInResult, error) {
	start := time.Now()

	claims, err := s.tokens.ValidateChallengeToken(challengeToken)
	if err != nil {
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	if _, err := s.twoFactor.VerifyLogin(ctx, claims.UserID, claims.Email, code, client.IPAddress); err != nil {
		if errors.Is(err, models.ErrInvalidTwoFactorCode) || errors.Is(err, models.ErrTwoFactorRateLimited) {
			s.auditAttempt(claims.Email, claims.UserID, client, false, "invalid_2fa_code")
			s.timing.WaitFrom(start, false)
		}
		return nil, err
	}

	user, err := s.provider.GetUser(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("failed to fetch user after 2FA",
			slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.completeSignIn(ctx, user, device, client, start)
}

// SignOut revokes the provider-side sessions for a user.
func (s *SignInService) SignOut(ctx context.Context, userID, email string, client ClientContext) error {
	if err := s.provider.SignOut(ctx, userID); err != nil {
		s.logger.Error("provider sign-out failed",
			slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.events.LogEvent(ctx, models.EventTypeSignOut, models.SeverityInfo,
		nil, userID, email, client.IPAddress)
	return nil
}

// completeSignIn clears protection state, registers the device, and mints
// the session token. Device registration is best effort.
func (s *SignInService) completeSignIn(ctx context.Context, user *models.User, device *models.DeviceInfo, client ClientContext, start time.Time) (*SignInResult, error) {
	s.rateLimit.Record(user.Email, true)
	s.lockout.ResetFailedAttempts(ctx, user.Email)

	var deviceResult models.RegisterDeviceResult
	if device != nil {
		result, err := s.devices.RegisterDevice(ctx, user.ID, user.Email, device, client.IPAddress)
		if err != nil {
			s.logger.Error("device registration failed",
				slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			deviceResult = result
		}
	}

	authTime := time.Now()
	token, err := s.tokens.GenerateSessionToken(user.ID, user.Email, authTime)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.events.LogEvent(ctx, models.EventTypeLoginSuccess, models.SeverityInfo,
		models.EventDetails{"new_device": deviceResult.IsNewDevice},
		user.ID, user.Email, client.IPAddress)
	s.auditAttempt(user.Email, user.ID, client, true, "")

	return &SignInResult{
		User:         user,
		SessionToken: token,
		Device:       deviceResult,
	}, nil
}

// recordFailure books a credential miss into both protection layers.
func (s *SignInService) recordFailure(ctx context.Context, email string, client ClientContext) {
	s.rateLimit.Record(email, false)

	var ip *string
	if client.IPAddress != "" {
		ip = &client.IPAddress
	}
	s.lockout.RecordFailedAttempt(ctx, email, ip, "")

	s.events.LogEvent(ctx, models.EventTypeLoginFailed, models.SeverityWarning,
		nil, "", email, client.IPAddress)
}

func (s *SignInService) auditAttempt(email, userID string, client ClientContext, success bool, reason string) {
	s.audit.LogAuthAttempt(logger.AuditEvent{
		EventType:     "sign_in",
		UserID:        userID,
		Email:         email,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		Success:       success,
		FailureReason: reason,
	})
}
