package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to clients. The messages that accompany them
// are intentionally generic; raw provider or database text never reaches the
// response body.
const (
	CodeInvalidCredentials = "AUTH_001"
	CodeRateLimited        = "AUTH_002"
	CodeAccountLocked      = "AUTH_003"
	CodeInvalidTwoFactor   = "AUTH_004"
	CodeBadRequest         = "AUTH_400"
	CodeUnauthorized       = "AUTH_401"
	CodeForbidden          = "AUTH_403"
	CodeNotFound           = "AUTH_404"
	CodeInternal           = "AUTH_500"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(resp)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, message)
}

// WriteInvalidCredentials writes the single generic credential failure. Wrong
// password and unknown email produce byte-identical responses.
func WriteInvalidCredentials(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials,
		"Please check your email and password and try again")
}

// WriteRateLimited writes a throttle response including a Retry-After hint.
func WriteRateLimited(w http.ResponseWriter, retryAfterMinutes int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterMinutes*60))
	WriteError(w, http.StatusTooManyRequests, CodeRateLimited,
		fmt.Sprintf("Too many attempts. Please try again in %d minutes", retryAfterMinutes))
}

// WriteAccountLocked writes a lockout response with the remaining minutes.
func WriteAccountLocked(w http.ResponseWriter, remainingMinutes int) {
	WriteError(w, http.StatusTooManyRequests, CodeAccountLocked,
		fmt.Sprintf("Account temporarily locked. Please try again in %d minutes", remainingMinutes))
}

// WriteInvalidTwoFactorCode writes the generic verification failure; it never
// distinguishes TOTP from backup-code failure.
func WriteInvalidTwoFactorCode(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeInvalidTwoFactor,
		"Invalid verification code")
}
