package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// TwoFactorRepository defines the interface for two-factor settings storage
type TwoFactorRepository interface {
	Get(ctx context.Context, userID string) (*models.TwoFactorSettings, error)
	Enable(ctx context.Context, userID, secret string, backupCodes models.BackupCodeEntries) error
	Disable(ctx context.Context, userID string) error
	ReplaceBackupCodes(ctx context.Context, userID string, backupCodes models.BackupCodeEntries) error
	ConsumeBackupCode(ctx context.Context, userID string, matches func(codeHash string) bool) (bool, error)
}

// TwoFactorAttemptRepository defines the interface for attempt tracking
type TwoFactorAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.TwoFactorAttempt) error
	GetFailedCount(ctx context.Context, userID string, since time.Time) (int, error)
}

// TwoFactorConfig holds configuration for two-factor verification
type TwoFactorConfig struct {
	BackupCodeCount int
	MaxAttempts     int
	AttemptWindow   time.Duration
}

// TwoFactorService manages TOTP issuance, verification, and the backup-code
// lifecycle. Every failure path reports the same generic invalid-code error;
// callers can never learn whether a TOTP mismatched, a backup code missed,
// or 2FA is simply not enabled.
type TwoFactorService struct {
	repo        TwoFactorRepository
	attemptRepo TwoFactorAttemptRepository
	totp        *auth.TOTPManager
	events      *SecurityEventService
	config      TwoFactorConfig
	logger      *slog.Logger
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(
	repo TwoFactorRepository,
	attemptRepo TwoFactorAttemptRepository,
	totp *auth.TOTPManager,
	events *SecurityEventService,
	config TwoFactorConfig,
	logger *slog.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		repo:        repo,
		attemptRepo: attemptRepo,
		totp:        totp,
		events:      events,
		config:      config,
		logger:      logger,
	}
}

// GenerateSetup issues a fresh secret with QR provisioning material. Nothing
// is persisted: the caller must come back through Enable with a valid code
// against this secret before it becomes real.
func (s *TwoFactorService) GenerateSetup(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
	secret, err := s.totp.GenerateSecret(email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	qr, err := s.totp.GenerateQRCode(secret, email)
	if err != nil {
		s.logger.Error("failed to generate QR code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.TwoFactorSetup{
		Secret:     secret,
		OTPAuthURL: s.totp.ProvisioningURL(secret, email),
		QRCode:     qr,
	}, nil
}

// Enable turns on 2FA after the caller proves possession of a working
// authenticator: the submitted code must validate against the still-unsaved
// secret. On success the backup codes are returned in plaintext exactly
// once; only their hashes are stored.
func (s *TwoFactorService) Enable(ctx context.Context, userID, email, secret, code string) ([]string, error) {
	if !s.totp.ValidateTOTP(code, secret) {
		s.logInvalidCode(ctx, userID, email, "enable")
		return nil, models.ErrInvalidTwoFactorCode
	}

	codes, err := s.totp.GenerateBackupCodes(s.config.BackupCodeCount)
	if err != nil {
		s.logger.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	entries, err := hashBackupCodes(codes)
	if err != nil {
		s.logger.Error("failed to hash backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.Enable(ctx, userID, secret, entries); err != nil {
		s.logger.Error("failed to persist two-factor settings", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.events.LogEvent(ctx, models.EventTypeTwoFactorEnabled, models.SeverityInfo,
		nil, userID, email, "")
	s.logger.Info("two-factor authentication enabled", slog.String("user_id", userID))

	return codes, nil
}

// Disable turns off 2FA. A valid TOTP or backup code is required; a matched
// backup code is consumed even though the whole set is cleared right after.
func (s *TwoFactorService) Disable(ctx context.Context, userID, email, code string) error {
	result, err := s.verifyCode(ctx, userID, code)
	if err != nil {
		return err
	}
	if !result.Success {
		s.logInvalidCode(ctx, userID, email, "disable")
		return models.ErrInvalidTwoFactorCode
	}

	if err := s.repo.Disable(ctx, userID); err != nil {
		s.logger.Error("failed to disable two-factor settings", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.events.LogEvent(ctx, models.EventTypeTwoFactorDisabled, models.SeverityInfo,
		nil, userID, email, "")
	s.logger.Info("two-factor authentication disabled", slog.String("user_id", userID))

	return nil
}

// VerifyLogin checks a code during sign-in. TOTP is tried first; only on a
// TOTP miss is the backup-code set consulted, and a matched backup code is
// consumed atomically so it can never be replayed. Attempts are throttled
// per user within a bounded window; throttle bookkeeping degrades open.
func (s *TwoFactorService) VerifyLogin(ctx context.Context, userID, email, code, ipAddress string) (models.TwoFactorVerifyResult, error) {
	failed, err := s.attemptRepo.GetFailedCount(ctx, userID, time.Now().Add(-s.config.AttemptWindow))
	if err != nil {
		s.logger.Error("failed to check verification attempts", slog.Any("error", err))
	} else if failed >= s.config.MaxAttempts {
		s.recordAttempt(ctx, userID, ipAddress, false)
		s.events.LogEvent(ctx, models.EventTypeSuspiciousActivity, models.SeverityWarning,
			models.EventDetails{"reason": "2fa_rate_limited", "failed_attempts": failed},
			userID, email, ipAddress)
		return models.TwoFactorVerifyResult{}, models.ErrTwoFactorRateLimited
	}

	result, err := s.verifyCode(ctx, userID, code)
	if err != nil {
		return models.TwoFactorVerifyResult{}, err
	}

	s.recordAttempt(ctx, userID, ipAddress, result.Success)

	if !result.Success {
		s.logInvalidCode(ctx, userID, email, "login")
		return models.TwoFactorVerifyResult{}, models.ErrInvalidTwoFactorCode
	}

	if result.WasBackupCode {
		s.logger.Info("backup code used for sign-in", slog.String("user_id", userID))
	}

	return result, nil
}

// RegenerateBackupCodes replaces the entire backup-code set. Only a live
// TOTP code proves possession here; backup codes cannot mint more of
// themselves.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, email, code string) ([]string, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil || !settings.Enabled || settings.Secret == nil {
		s.logInvalidCode(ctx, userID, email, "regenerate_backup_codes")
		return nil, models.ErrInvalidTwoFactorCode
	}

	if !s.totp.ValidateTOTP(code, *settings.Secret) {
		s.logInvalidCode(ctx, userID, email, "regenerate_backup_codes")
		return nil, models.ErrInvalidTwoFactorCode
	}

	codes, err := s.totp.GenerateBackupCodes(s.config.BackupCodeCount)
	if err != nil {
		s.logger.Error("failed to generate backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	entries, err := hashBackupCodes(codes)
	if err != nil {
		s.logger.Error("failed to hash backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.ReplaceBackupCodes(ctx, userID, entries); err != nil {
		s.logger.Error("failed to replace backup codes", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("backup codes regenerated", slog.String("user_id", userID))
	return codes, nil
}

// IsEnabled reports whether a user has 2FA turned on.
func (s *TwoFactorService) IsEnabled(ctx context.Context, userID string) (bool, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return settings.Enabled, nil
}

// verifyCode runs the TOTP-then-backup verification. It reports not-enabled
// and code-mismatch identically as an unsuccessful result.
func (s *TwoFactorService) verifyCode(ctx context.Context, userID, code string) (models.TwoFactorVerifyResult, error) {
	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.TwoFactorVerifyResult{}, nil
		}
		s.logger.Error("failed to load two-factor settings", slog.Any("error", err))
		return models.TwoFactorVerifyResult{}, models.ErrInternalServer
	}

	if !settings.Enabled || settings.Secret == nil {
		return models.TwoFactorVerifyResult{}, nil
	}

	if s.totp.ValidateTOTP(code, *settings.Secret) {
		return models.TwoFactorVerifyResult{Success: true}, nil
	}

	consumed, err := s.repo.ConsumeBackupCode(ctx, userID, func(codeHash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(codeHash), []byte(code)) == nil
	})
	if err != nil {
		s.logger.Error("failed to consume backup code", slog.Any("error", err))
		return models.TwoFactorVerifyResult{}, models.ErrInternalServer
	}

	return models.TwoFactorVerifyResult{Success: consumed, WasBackupCode: consumed}, nil
}

func (s *TwoFactorService) recordAttempt(ctx context.Context, userID, ipAddress string, success bool) {
	err := s.attemptRepo.RecordAttempt(ctx, &models.TwoFactorAttempt{
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   success,
	})
	if err != nil {
		s.logger.Error("failed to record verification attempt", slog.Any("error", err))
	}
}

func (s *TwoFactorService) logInvalidCode(ctx context.Context, userID, email, operation string) {
	s.events.LogEvent(ctx, models.EventTypeSuspiciousActivity, models.SeverityWarning,
		models.EventDetails{"reason": "invalid_2fa_code", "operation": operation},
		userID, email, "")
}

func hashBackupCodes(codes []string) (models.BackupCodeEntries, error) {
	now := time.Now()
	entries := make(models.BackupCodeEntries, len(codes))
	for i, code := range codes {
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		entries[i] = models.BackupCodeEntry{
			CodeHash:  string(hash),
			CreatedAt: now,
		}
	}
	return entries, nil
}
