package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
)

// TwoFactorServiceInterface defines the interface for two-factor management
type TwoFactorServiceInterface interface {
	GenerateSetup(ctx context.Context, email string) (*models.TwoFactorSetup, error)
	Enable(ctx context.Context, userID, email, secret, code string) ([]string, error)
	Disable(ctx context.Context, userID, email, code string) error
	RegenerateBackupCodes(ctx context.Context, userID, email, code string) ([]string, error)
	IsEnabled(ctx context.Context, userID string) (bool, error)
}

// TwoFactorHandler handles two-factor enrollment and management. All routes
// sit behind the session middleware.
type TwoFactorHandler struct {
	service TwoFactorServiceInterface
}

// NewTwoFactorHandler creates a new TwoFactorHandler
func NewTwoFactorHandler(service TwoFactorServiceInterface) *TwoFactorHandler {
	return &TwoFactorHandler{service: service}
}

// EnableTwoFactorRequest carries the proof-of-possession for enrollment. The
// secret is the one issued by setup; it is never stored before this call.
type EnableTwoFactorRequest struct {
	Secret string `json:"secret" validate:"required"`
	Code   string `json:"code" validate:"required,len=6,numeric"`
}

// TwoFactorCodeRequest carries a verification code for disable/regenerate
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,min=6,max=8"`
}

// BackupCodesResponse returns freshly issued backup codes. This is the only
// time the plaintext codes are visible.
type BackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// TwoFactorStatusResponse reports whether 2FA is enabled
type TwoFactorStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// Setup handles POST /security/2fa/setup
func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	email, err := auth.EmailFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	setup, err := h.service.GenerateSetup(r.Context(), email)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to generate two-factor setup")
		return
	}

	writeJSON(w, http.StatusOK, setup)
}

// Enable handles POST /security/2fa/enable
func (h *TwoFactorHandler) Enable(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req EnableTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	codes, err := h.service.Enable(r.Context(), userID, email, req.Secret, strings.TrimSpace(req.Code))
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

// Disable handles POST /security/2fa/disable
func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), userID, email, strings.TrimSpace(req.Code)); err != nil {
		writeTwoFactorError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegenerateBackupCodes handles POST /security/2fa/backup-codes
func (h *TwoFactorHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req TwoFactorCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	codes, err := h.service.RegenerateBackupCodes(r.Context(), userID, email, strings.TrimSpace(req.Code))
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BackupCodesResponse{BackupCodes: codes})
}

// Status handles GET /security/2fa
func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	enabled, err := h.service.IsEnabled(r.Context(), userID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to check two-factor status")
		return
	}

	writeJSON(w, http.StatusOK, TwoFactorStatusResponse{Enabled: enabled})
}

func writeTwoFactorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidTwoFactorCode),
		errors.Is(err, models.ErrTwoFactorRateLimited):
		pkghttp.WriteInvalidTwoFactorCode(w)
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (userID, email string, ok bool) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return "", "", false
	}
	email, _ = auth.EmailFromContext(r.Context())
	return userID, email, true
}
