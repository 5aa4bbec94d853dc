package services

import (
	"context"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// MockLockoutRepository implements LockoutRepository for testing
type MockLockoutRepository struct {
	GetByEmailFunc        func(ctx context.Context, email string) (*models.AccountLockout, error)
	IncrementOrCreateFunc func(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error)
	SetLockedUntilFunc    func(ctx context.Context, id string, until time.Time) error
	DeleteByEmailFunc     func(ctx context.Context, email string) error
	DeleteByIDFunc        func(ctx context.Context, id string) error
}

func (m *MockLockoutRepository) GetByEmail(ctx context.Context, email string) (*models.AccountLockout, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockoutRepository) IncrementOrCreate(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error) {
	if m.IncrementOrCreateFunc != nil {
		return m.IncrementOrCreateFunc(ctx, email, ipAddress)
	}
	return nil, models.ErrInternalServer
}

func (m *MockLockoutRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	if m.SetLockedUntilFunc != nil {
		return m.SetLockedUntilFunc(ctx, id, until)
	}
	return nil
}

func (m *MockLockoutRepository) DeleteByEmail(ctx context.Context, email string) error {
	if m.DeleteByEmailFunc != nil {
		return m.DeleteByEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockLockoutRepository) DeleteByID(ctx context.Context, id string) error {
	if m.DeleteByIDFunc != nil {
		return m.DeleteByIDFunc(ctx, id)
	}
	return nil
}

// MockDeviceSessionRepository implements DeviceSessionRepository for testing
type MockDeviceSessionRepository struct {
	GetByFingerprintFunc func(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error)
	GetByIDFunc          func(ctx context.Context, userID, deviceID string) (*models.DeviceSession, error)
	CreateFunc           func(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error)
	TouchFunc            func(ctx context.Context, id string, browserInfo models.BrowserInfo) error
	ListByUserFunc       func(ctx context.Context, userID string) ([]*models.DeviceSession, error)
	SetTrustedFunc       func(ctx context.Context, userID, deviceID string, trusted bool) error
	DeleteFunc           func(ctx context.Context, userID, deviceID string) error
}

func (m *MockDeviceSessionRepository) GetByFingerprint(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error) {
	if m.GetByFingerprintFunc != nil {
		return m.GetByFingerprintFunc(ctx, userID, fingerprint)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceSessionRepository) GetByID(ctx context.Context, userID, deviceID string) (*models.DeviceSession, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, deviceID)
	}
	return nil, models.ErrNotFound
}

func (m *MockDeviceSessionRepository) Create(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	return session, nil
}

func (m *MockDeviceSessionRepository) Touch(ctx context.Context, id string, browserInfo models.BrowserInfo) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, id, browserInfo)
	}
	return nil
}

func (m *MockDeviceSessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.DeviceSession, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.DeviceSession{}, nil
}

func (m *MockDeviceSessionRepository) SetTrusted(ctx context.Context, userID, deviceID string, trusted bool) error {
	if m.SetTrustedFunc != nil {
		return m.SetTrustedFunc(ctx, userID, deviceID, trusted)
	}
	return nil
}

func (m *MockDeviceSessionRepository) Delete(ctx context.Context, userID, deviceID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, userID, deviceID)
	}
	return nil
}

// MockTwoFactorRepository implements TwoFactorRepository for testing
type MockTwoFactorRepository struct {
	GetFunc                func(ctx context.Context, userID string) (*models.TwoFactorSettings, error)
	EnableFunc             func(ctx context.Context, userID, secret string, backupCodes models.BackupCodeEntries) error
	DisableFunc            func(ctx context.Context, userID string) error
	ReplaceBackupCodesFunc func(ctx context.Context, userID string, backupCodes models.BackupCodeEntries) error
	ConsumeBackupCodeFunc  func(ctx context.Context, userID string, matches func(codeHash string) bool) (bool, error)
}

func (m *MockTwoFactorRepository) Get(ctx context.Context, userID string) (*models.TwoFactorSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockTwoFactorRepository) Enable(ctx context.Context, userID, secret string, backupCodes models.BackupCodeEntries) error {
	if m.EnableFunc != nil {
		return m.EnableFunc(ctx, userID, secret, backupCodes)
	}
	return nil
}

func (m *MockTwoFactorRepository) Disable(ctx context.Context, userID string) error {
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, userID)
	}
	return nil
}

func (m *MockTwoFactorRepository) ReplaceBackupCodes(ctx context.Context, userID string, backupCodes models.BackupCodeEntries) error {
	if m.ReplaceBackupCodesFunc != nil {
		return m.ReplaceBackupCodesFunc(ctx, userID, backupCodes)
	}
	return nil
}

func (m *MockTwoFactorRepository) ConsumeBackupCode(ctx context.Context, userID string, matches func(codeHash string) bool) (bool, error) {
	if m.ConsumeBackupCodeFunc != nil {
		return m.ConsumeBackupCodeFunc(ctx, userID, matches)
	}
	return false, nil
}

// MockTwoFactorAttemptRepository implements TwoFactorAttemptRepository for testing
type MockTwoFactorAttemptRepository struct {
	RecordAttemptFunc  func(ctx context.Context, attempt *models.TwoFactorAttempt) error
	GetFailedCountFunc func(ctx context.Context, userID string, since time.Time) (int, error)
}

func (m *MockTwoFactorAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.TwoFactorAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockTwoFactorAttemptRepository) GetFailedCount(ctx context.Context, userID string, since time.Time) (int, error) {
	if m.GetFailedCountFunc != nil {
		return m.GetFailedCountFunc(ctx, userID, since)
	}
	return 0, nil
}

// MockSecurityEventRepository implements SecurityEventRepository for testing
type MockSecurityEventRepository struct {
	InsertFunc      func(ctx context.Context, event *models.SecurityEvent) error
	InsertBatchFunc func(ctx context.Context, events []*models.SecurityEvent) error
}

func (m *MockSecurityEventRepository) Insert(ctx context.Context, event *models.SecurityEvent) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, event)
	}
	return nil
}

func (m *MockSecurityEventRepository) InsertBatch(ctx context.Context, events []*models.SecurityEvent) error {
	if m.InsertBatchFunc != nil {
		return m.InsertBatchFunc(ctx, events)
	}
	return nil
}

// MockIdentityProvider implements identity.Provider for testing
type MockIdentityProvider struct {
	VerifyCredentialsFunc func(ctx context.Context, email, password string) (*models.User, error)
	SignOutFunc           func(ctx context.Context, userID string) error
	GetUserFunc           func(ctx context.Context, userID string) (*models.User, error)
}

func (m *MockIdentityProvider) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	if m.VerifyCredentialsFunc != nil {
		return m.VerifyCredentialsFunc(ctx, email, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, userID string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID)
	}
	return nil
}

func (m *MockIdentityProvider) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

// MockAlertNotifier implements AlertNotifier for testing
type MockAlertNotifier struct {
	NotifyNewDeviceFunc     func(ctx context.Context, email, deviceName, ipAddress string)
	NotifyAccountLockedFunc func(ctx context.Context, email string, lockoutMinutes int)
}

func (m *MockAlertNotifier) NotifyNewDevice(ctx context.Context, email, deviceName, ipAddress string) {
	if m.NotifyNewDeviceFunc != nil {
		m.NotifyNewDeviceFunc(ctx, email, deviceName, ipAddress)
	}
}

func (m *MockAlertNotifier) NotifyAccountLocked(ctx context.Context, email string, lockoutMinutes int) {
	if m.NotifyAccountLockedFunc != nil {
		m.NotifyAccountLockedFunc(ctx, email, lockoutMinutes)
	}
}
