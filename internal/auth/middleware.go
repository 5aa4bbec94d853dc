package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Nymfarious/drumline-auth/internal/models"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
)

type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for the authenticated user email
	EmailKey contextKey = "email"
)

// SessionMiddleware validates the bearer session token and injects the
// user identity into the request context. Tokens past the wall-clock
// auth-time ceiling are rejected here regardless of their own expiry.
func SessionMiddleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearerToken(r)
			if tokenString == "" {
				pkghttp.WriteUnauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := tm.ValidateSessionToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", models.ErrUnauthorized
	}
	return userID, nil
}

// EmailFromContext returns the authenticated user email, if any.
func EmailFromContext(ctx context.Context) (string, error) {
	email, ok := ctx.Value(EmailKey).(string)
	if !ok || email == "" {
		return "", models.ErrUnauthorized
	}
	return email, nil
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
