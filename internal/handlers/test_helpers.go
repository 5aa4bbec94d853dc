package handlers

import (
	"context"
	"net/http"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/Nymfarious/drumline-auth/internal/services"
)

// MockSignInService implements SignInServiceInterface for testing
type MockSignInService struct {
	SignInFunc          func(ctx context.Context, email, password string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error)
	VerifyTwoFactorFunc func(ctx context.Context, challengeToken, code string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error)
	SignOutFunc         func(ctx context.Context, userID, email string, client services.ClientContext) error
}

func (m *MockSignInService) SignIn(ctx context.Context, email, password string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password, device, client)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockSignInService) VerifyTwoFactor(ctx context.Context, challengeToken, code string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error) {
	if m.VerifyTwoFactorFunc != nil {
		return m.VerifyTwoFactorFunc(ctx, challengeToken, code, device, client)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockSignInService) SignOut(ctx context.Context, userID, email string, client services.ClientContext) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID, email, client)
	}
	return nil
}

// MockTwoFactorManagementService implements TwoFactorServiceInterface for testing
type MockTwoFactorManagementService struct {
	GenerateSetupFunc         func(ctx context.Context, email string) (*models.TwoFactorSetup, error)
	EnableFunc                func(ctx context.Context, userID, email, secret, code string) ([]string, error)
	DisableFunc               func(ctx context.Context, userID, email, code string) error
	RegenerateBackupCodesFunc func(ctx context.Context, userID, email, code string) ([]string, error)
	IsEnabledFunc             func(ctx context.Context, userID string) (bool, error)
}

func (m *MockTwoFactorManagementService) GenerateSetup(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
	if m.GenerateSetupFunc != nil {
		return m.GenerateSetupFunc(ctx, email)
	}
	return nil, models.ErrInternalServer
}

func (m *MockTwoFactorManagementService) Enable(ctx context.Context, userID, email, secret, code string) ([]string, error) {
	if m.EnableFunc != nil {
		return m.EnableFunc(ctx, userID, email, secret, code)
	}
	return nil, models.ErrInvalidTwoFactorCode
}

func (m *MockTwoFactorManagementService) Disable(ctx context.Context, userID, email, code string) error {
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, userID, email, code)
	}
	return models.ErrInvalidTwoFactorCode
}

func (m *MockTwoFactorManagementService) RegenerateBackupCodes(ctx context.Context, userID, email, code string) ([]string, error) {
	if m.RegenerateBackupCodesFunc != nil {
		return m.RegenerateBackupCodesFunc(ctx, userID, email, code)
	}
	return nil, models.ErrInvalidTwoFactorCode
}

func (m *MockTwoFactorManagementService) IsEnabled(ctx context.Context, userID string) (bool, error) {
	if m.IsEnabledFunc != nil {
		return m.IsEnabledFunc(ctx, userID)
	}
	return false, nil
}

// MockDeviceManagementService implements DeviceServiceInterface for testing
type MockDeviceManagementService struct {
	GetUserDevicesFunc func(ctx context.Context, userID string) ([]*models.DeviceSession, error)
	TrustDeviceFunc    func(ctx context.Context, userID, deviceID string) error
	RevokeDeviceFunc   func(ctx context.Context, userID, deviceID string) error
}

func (m *MockDeviceManagementService) GetUserDevices(ctx context.Context, userID string) ([]*models.DeviceSession, error) {
	if m.GetUserDevicesFunc != nil {
		return m.GetUserDevicesFunc(ctx, userID)
	}
	return []*models.DeviceSession{}, nil
}

func (m *MockDeviceManagementService) TrustDevice(ctx context.Context, userID, deviceID string) error {
	if m.TrustDeviceFunc != nil {
		return m.TrustDeviceFunc(ctx, userID, deviceID)
	}
	return nil
}

func (m *MockDeviceManagementService) RevokeDevice(ctx context.Context, userID, deviceID string) error {
	if m.RevokeDeviceFunc != nil {
		return m.RevokeDeviceFunc(ctx, userID, deviceID)
	}
	return nil
}

// withIdentity injects an authenticated identity into the request context,
// the way the session middleware would.
func withIdentity(r *http.Request, userID, email string) *http.Request {
	ctx := context.WithValue(r.Context(), auth.UserIDKey, userID)
	ctx = context.WithValue(ctx, auth.EmailKey, email)
	return r.WithContext(ctx)
}
