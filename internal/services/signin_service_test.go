package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/Nymfarious/drumline-auth/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signInFixture struct {
	svc           *SignInService
	provider      *MockIdentityProvider
	lockoutRepo   *MockLockoutRepository
	deviceRepo    *MockDeviceSessionRepository
	twoFactorRepo *MockTwoFactorRepository
	rateLimit     *RateLimitService
	tokens        *auth.TokenManager
}

func newSignInFixture(t *testing.T) *signInFixture {
	t.Helper()

	log := slog.Default()
	events := newTestEventService()

	f := &signInFixture{
		provider:      &MockIdentityProvider{},
		lockoutRepo:   &MockLockoutRepository{},
		deviceRepo:    &MockDeviceSessionRepository{},
		twoFactorRepo: &MockTwoFactorRepository{},
	}

	f.rateLimit = NewRateLimitService(RateLimitConfig{MaxAttempts: 5, Window: 15 * time.Minute}, log)

	lockout := NewLockoutService(f.lockoutRepo, events, &MockAlertNotifier{}, LockoutConfig{
		MaxAttempts: 5,
		Schedule:    []time.Duration{15 * time.Minute, 30 * time.Minute},
	}, log)

	twoFactor := NewTwoFactorService(f.twoFactorRepo, &MockTwoFactorAttemptRepository{},
		auth.NewTOTPManager("Drumline"), events, TwoFactorConfig{
			BackupCodeCount: 10,
			MaxAttempts:     10,
			AttemptWindow:   15 * time.Minute,
		}, log)

	devices := NewDeviceService(f.deviceRepo, events, &MockAlertNotifier{}, 90*24*time.Hour, log)

	f.tokens = auth.NewTokenManager("test-signing-secret-at-least-32-chars!!",
		time.Hour, 24*time.Hour, 5*time.Minute)

	f.svc = NewSignInService(
		f.provider,
		f.rateLimit,
		lockout,
		twoFactor,
		devices,
		f.tokens,
		auth.NewTimingDelay(auth.TimingConfig{}),
		events,
		logger.NewAuditLogger(log),
		log,
	)
	return f
}

func testClient() ClientContext {
	return ClientContext{IPAddress: "203.0.113.9", UserAgent: "Mozilla/5.0 (Macintosh)"}
}

func testDevice() *models.DeviceInfo {
	return &models.DeviceInfo{
		UserAgent:   "Mozilla/5.0 (Macintosh)",
		Platform:    "MacIntel",
		Language:    "en-US",
		ScreenWidth: 1440,
	}
}

func TestSignInService_SignIn_Success(t *testing.T) {
	f := newSignInFixture(t)
	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		return &models.User{ID: "user_1", Email: email}, nil
	}

	historyCleared := false
	f.lockoutRepo.DeleteByEmailFunc = func(ctx context.Context, email string) error {
		historyCleared = true
		return nil
	}

	result, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.Empty(t, result.ChallengeToken)
	assert.False(t, result.RequiresTwoFactor)
	assert.True(t, historyCleared)

	claims, err := f.tokens.ValidateSessionToken(result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
}

func TestSignInService_SignIn_InvalidCredentialsRecordedInBothLayers(t *testing.T) {
	f := newSignInFixture(t)

	incremented := false
	f.lockoutRepo.IncrementOrCreateFunc = func(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error) {
		incremented = true
		require.NotNil(t, ipAddress)
		assert.Equal(t, "203.0.113.9", *ipAddress)
		return &models.AccountLockout{ID: "lockout_1", Email: email, FailedAttempts: 1}, nil
	}

	_, err := f.svc.SignIn(context.Background(), "drummer@example.com", "wrong", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, incremented)

	// The in-memory throttle saw the failure too.
	for i := 0; i < 4; i++ {
		f.rateLimit.Record("drummer@example.com", false)
	}
	assert.False(t, f.rateLimit.Check("drummer@example.com").Allowed)
}

func TestSignInService_SignIn_LockedAccountSkipsCredentialGate(t *testing.T) {
	f := newSignInFixture(t)

	until := time.Now().Add(45 * time.Minute)
	f.lockoutRepo.GetByEmailFunc = func(ctx context.Context, email string) (*models.AccountLockout, error) {
		return &models.AccountLockout{ID: "lockout_1", Email: email, FailedAttempts: 10, LockedUntil: &until}, nil
	}

	verified := false
	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		verified = true
		return &models.User{ID: "user_1", Email: email}, nil
	}

	_, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 45, locked.RemainingMinutes)
	assert.False(t, verified)
}

func TestSignInService_SignIn_RateLimitedAfterFiveFailures(t *testing.T) {
	f := newSignInFixture(t)
	f.lockoutRepo.IncrementOrCreateFunc = func(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error) {
		return &models.AccountLockout{ID: "lockout_1", Email: email, FailedAttempts: 1}, nil
	}

	for i := 0; i < 5; i++ {
		_, err := f.svc.SignIn(context.Background(), "drummer@example.com", "wrong", testDevice(), testClient())
		assert.ErrorIs(t, err, models.ErrInvalidCredentials, "attempt %d", i+1)
	}

	verified := false
	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		verified = true
		return &models.User{ID: "user_1", Email: email}, nil
	}

	// The sixth attempt is refused before the password is ever checked,
	// even if it is correct.
	_, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrRateLimited)
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.GreaterOrEqual(t, limited.RetryAfterMinutes, 1)
	assert.False(t, verified)
}

func TestSignInService_SignIn_ProviderOutageIsNotPenalized(t *testing.T) {
	f := newSignInFixture(t)
	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		return nil, models.ErrIdentityUnavailable
	}

	incremented := false
	f.lockoutRepo.IncrementOrCreateFunc = func(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error) {
		incremented = true
		return &models.AccountLockout{ID: "lockout_1", Email: email, FailedAttempts: 1}, nil
	}

	_, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrIdentityUnavailable)
	assert.False(t, incremented)
	assert.True(t, f.rateLimit.Check("drummer@example.com").Allowed)
}

func TestSignInService_SignIn_TwoFactorRequired(t *testing.T) {
	f := newSignInFixture(t)
	secret := newTestSecret(t)

	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		return &models.User{ID: "user_1", Email: email}, nil
	}
	f.twoFactorRepo.GetFunc = func(ctx context.Context, userID string) (*models.TwoFactorSettings, error) {
		return enabledSettings(secret, nil), nil
	}

	providerSessionRevoked := false
	f.provider.SignOutFunc = func(ctx context.Context, userID string) error {
		providerSessionRevoked = true
		return nil
	}

	result, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor)
	assert.Empty(t, result.SessionToken)
	assert.NotEmpty(t, result.ChallengeToken)
	assert.True(t, providerSessionRevoked)

	claims, err := f.tokens.ValidateChallengeToken(result.ChallengeToken)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
}

func TestSignInService_VerifyTwoFactor_CompletesSignIn(t *testing.T) {
	f := newSignInFixture(t)
	secret := newTestSecret(t)

	f.twoFactorRepo.GetFunc = func(ctx context.Context, userID string) (*models.TwoFactorSettings, error) {
		return enabledSettings(secret, nil), nil
	}
	f.provider.GetUserFunc = func(ctx context.Context, userID string) (*models.User, error) {
		return &models.User{ID: userID, Email: "drummer@example.com"}, nil
	}

	historyCleared := false
	f.lockoutRepo.DeleteByEmailFunc = func(ctx context.Context, email string) error {
		historyCleared = true
		return nil
	}

	challenge, err := f.tokens.GenerateChallengeToken("user_1", "drummer@example.com")
	require.NoError(t, err)

	result, err := f.svc.VerifyTwoFactor(context.Background(), challenge, validCodeFor(t, secret), testDevice(), testClient())

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.True(t, historyCleared)
}

func TestSignInService_VerifyTwoFactor_RejectsGarbageToken(t *testing.T) {
	f := newSignInFixture(t)

	_, err := f.svc.VerifyTwoFactor(context.Background(), "not-a-token", "123456", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignInService_VerifyTwoFactor_RejectsSessionToken(t *testing.T) {
	f := newSignInFixture(t)

	// A full session token must not pass the challenge gate.
	session, err := f.tokens.GenerateSessionToken("user_1", "drummer@example.com", time.Now())
	require.NoError(t, err)

	_, err = f.svc.VerifyTwoFactor(context.Background(), session, "123456", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignInService_VerifyTwoFactor_InvalidCode(t *testing.T) {
	f := newSignInFixture(t)
	secret := newTestSecret(t)

	f.twoFactorRepo.GetFunc = func(ctx context.Context, userID string) (*models.TwoFactorSettings, error) {
		return enabledSettings(secret, nil), nil
	}

	challenge, err := f.tokens.GenerateChallengeToken("user_1", "drummer@example.com")
	require.NoError(t, err)

	_, err = f.svc.VerifyTwoFactor(context.Background(), challenge, "000000", testDevice(), testClient())

	assert.ErrorIs(t, err, models.ErrInvalidTwoFactorCode)
}

func TestSignInService_SignIn_DeviceRegistrationFailureDoesNotBlock(t *testing.T) {
	f := newSignInFixture(t)
	f.provider.VerifyCredentialsFunc = func(ctx context.Context, email, password string) (*models.User, error) {
		return &models.User{ID: "user_1", Email: email}, nil
	}
	f.deviceRepo.CreateFunc = func(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
		return nil, models.ErrInternalServer
	}

	result, err := f.svc.SignIn(context.Background(), "drummer@example.com", "correct-horse", testDevice(), testClient())

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
}

func TestSignInService_SignOut(t *testing.T) {
	f := newSignInFixture(t)

	signedOut := ""
	f.provider.SignOutFunc = func(ctx context.Context, userID string) error {
		signedOut = userID
		return nil
	}

	err := f.svc.SignOut(context.Background(), "user_1", "drummer@example.com", testClient())

	require.NoError(t, err)
	assert.Equal(t, "user_1", signedOut)
}
