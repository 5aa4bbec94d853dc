package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nymfarious/drumline-auth/internal/models"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSONAs(t *testing.T, handler http.HandlerFunc, path string, body interface{}, userID, email string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = withIdentity(req, userID, email)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestTwoFactorHandler_Setup(t *testing.T) {
	svc := &MockTwoFactorManagementService{
		GenerateSetupFunc: func(ctx context.Context, email string) (*models.TwoFactorSetup, error) {
			assert.Equal(t, "drummer@example.com", email)
			return &models.TwoFactorSetup{
				Secret:     "JBSWY3DPEHPK3PXP",
				OTPAuthURL: "otpauth://totp/Drumline:drummer@example.com?secret=JBSWY3DPEHPK3PXP",
				QRCode:     "data:image/png;base64,abc",
			}, nil
		},
	}
	h := NewTwoFactorHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/security/2fa/setup", nil)
	req = withIdentity(req, "user_1", "drummer@example.com")
	rec := httptest.NewRecorder()
	h.Setup(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.TwoFactorSetup
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "JBSWY3DPEHPK3PXP", resp.Secret)
	assert.NotEmpty(t, resp.QRCode)
}

func TestTwoFactorHandler_Setup_Unauthenticated(t *testing.T) {
	h := NewTwoFactorHandler(&MockTwoFactorManagementService{})

	req := httptest.NewRequest(http.MethodPost, "/security/2fa/setup", nil)
	rec := httptest.NewRecorder()
	h.Setup(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTwoFactorHandler_Enable_ReturnsBackupCodes(t *testing.T) {
	svc := &MockTwoFactorManagementService{
		EnableFunc: func(ctx context.Context, userID, email, secret, code string) ([]string, error) {
			assert.Equal(t, "user_1", userID)
			assert.Equal(t, "JBSWY3DPEHPK3PXP", secret)
			return []string{"AAAA2222", "BBBB3333"}, nil
		},
	}
	h := NewTwoFactorHandler(svc)

	rec := postJSONAs(t, h.Enable, "/security/2fa/enable", EnableTwoFactorRequest{
		Secret: "JBSWY3DPEHPK3PXP",
		Code:   "123456",
	}, "user_1", "drummer@example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BackupCodesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"AAAA2222", "BBBB3333"}, resp.BackupCodes)
}

func TestTwoFactorHandler_Enable_InvalidProof(t *testing.T) {
	h := NewTwoFactorHandler(&MockTwoFactorManagementService{})

	rec := postJSONAs(t, h.Enable, "/security/2fa/enable", EnableTwoFactorRequest{
		Secret: "JBSWY3DPEHPK3PXP",
		Code:   "000000",
	}, "user_1", "drummer@example.com")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, pkghttp.CodeInvalidTwoFactor, resp.Error)
}

func TestTwoFactorHandler_Enable_RejectsNonNumericCode(t *testing.T) {
	h := NewTwoFactorHandler(&MockTwoFactorManagementService{})

	rec := postJSONAs(t, h.Enable, "/security/2fa/enable", EnableTwoFactorRequest{
		Secret: "JBSWY3DPEHPK3PXP",
		Code:   "abc123",
	}, "user_1", "drummer@example.com")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTwoFactorHandler_Disable(t *testing.T) {
	disabled := false
	svc := &MockTwoFactorManagementService{
		DisableFunc: func(ctx context.Context, userID, email, code string) error {
			disabled = true
			return nil
		},
	}
	h := NewTwoFactorHandler(svc)

	rec := postJSONAs(t, h.Disable, "/security/2fa/disable", TwoFactorCodeRequest{
		Code: "ABCD2345",
	}, "user_1", "drummer@example.com")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, disabled)
}

func TestTwoFactorHandler_RegenerateBackupCodes(t *testing.T) {
	svc := &MockTwoFactorManagementService{
		RegenerateBackupCodesFunc: func(ctx context.Context, userID, email, code string) ([]string, error) {
			return []string{"CCCC4444"}, nil
		},
	}
	h := NewTwoFactorHandler(svc)

	rec := postJSONAs(t, h.RegenerateBackupCodes, "/security/2fa/backup-codes", TwoFactorCodeRequest{
		Code: "123456",
	}, "user_1", "drummer@example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BackupCodesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"CCCC4444"}, resp.BackupCodes)
}

func TestTwoFactorHandler_Status(t *testing.T) {
	svc := &MockTwoFactorManagementService{
		IsEnabledFunc: func(ctx context.Context, userID string) (bool, error) {
			return true, nil
		},
	}
	h := NewTwoFactorHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/security/2fa", nil)
	req = withIdentity(req, "user_1", "drummer@example.com")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp TwoFactorStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Enabled)
}
