package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds per-IP request throttling configuration. This is
// transport-level back-pressure on top of the per-account sign-in throttle.
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the request throttle for auth endpoints
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteRateLimited(w, 1)
		}),
	)
}
