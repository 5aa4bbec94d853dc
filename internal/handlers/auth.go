package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/Nymfarious/drumline-auth/internal/services"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
)

// SignInServiceInterface defines the interface for the sign-in flow
type SignInServiceInterface interface {
	SignIn(ctx context.Context, email, password string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error)
	VerifyTwoFactor(ctx context.Context, challengeToken, code string, device *models.DeviceInfo, client services.ClientContext) (*services.SignInResult, error)
	SignOut(ctx context.Context, userID, email string, client services.ClientContext) error
}

// AuthHandler handles sign-in, two-factor verification, and sign-out
type AuthHandler struct {
	service  SignInServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service SignInServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// SignInRequest represents the request body for sign-in
type SignInRequest struct {
	Email    string             `json:"email" validate:"required,email"`
	Password string             `json:"password" validate:"required"`
	Device   *models.DeviceInfo `json:"device"`
}

// VerifyTwoFactorRequest represents the request body for completing a
// pending two-factor sign-in
type VerifyTwoFactorRequest struct {
	ChallengeToken string             `json:"challenge_token" validate:"required"`
	Code           string             `json:"code" validate:"required,min=6,max=8"`
	Device         *models.DeviceInfo `json:"device"`
}

// SignInResponse represents the response body for a sign-in attempt
type SignInResponse struct {
	Token             string       `json:"token,omitempty"`
	ChallengeToken    string       `json:"challenge_token,omitempty"`
	RequiresTwoFactor bool         `json:"requires_two_factor"`
	User              *models.User `json:"user,omitempty"`
	NewDevice         bool         `json:"new_device,omitempty"`
}

// SignIn handles POST /auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	client := clientFromRequest(r, h.ipConfig)

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password, req.Device, client)
	if err != nil {
		writeSignInError(w, err)
		return
	}

	if result.RequiresTwoFactor {
		writeJSON(w, http.StatusOK, SignInResponse{
			ChallengeToken:    result.ChallengeToken,
			RequiresTwoFactor: true,
		})
		return
	}

	writeJSON(w, http.StatusOK, SignInResponse{
		Token:     result.SessionToken,
		User:      result.User,
		NewDevice: result.Device.IsNewDevice,
	})
}

// VerifyTwoFactor handles POST /auth/sign-in/2fa
func (h *AuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	client := clientFromRequest(r, h.ipConfig)

	result, err := h.service.VerifyTwoFactor(r.Context(), req.ChallengeToken, strings.TrimSpace(req.Code), req.Device, client)
	if err != nil {
		writeSignInError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SignInResponse{
		Token:     result.SessionToken,
		User:      result.User,
		NewDevice: result.Device.IsNewDevice,
	})
}

// SignOut handles POST /auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}
	email, _ := auth.EmailFromContext(r.Context())

	if err := h.service.SignOut(r.Context(), userID, email, clientFromRequest(r, h.ipConfig)); err != nil {
		pkghttp.WriteInternalError(w, "Sign-out failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeSignInError maps sign-in flow errors to responses. Locked and
// rate-limited carry their wait times; everything credential-shaped is the
// same generic message.
func writeSignInError(w http.ResponseWriter, err error) {
	var locked *services.AccountLockedError
	if errors.As(err, &locked) {
		pkghttp.WriteAccountLocked(w, locked.RemainingMinutes)
		return
	}

	var limited *services.RateLimitedError
	if errors.As(err, &limited) {
		pkghttp.WriteRateLimited(w, limited.RetryAfterMinutes)
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteInvalidCredentials(w)
	case errors.Is(err, models.ErrInvalidTwoFactorCode),
		errors.Is(err, models.ErrTwoFactorRateLimited):
		pkghttp.WriteInvalidTwoFactorCode(w)
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid or expired challenge")
	case errors.Is(err, models.ErrIdentityUnavailable):
		pkghttp.WriteError(w, http.StatusServiceUnavailable, pkghttp.CodeInternal, "Service temporarily unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func clientFromRequest(r *http.Request, ipConfig *pkghttp.IPConfig) services.ClientContext {
	return services.ClientContext{
		IPAddress: pkghttp.ExtractClientIP(r, ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
