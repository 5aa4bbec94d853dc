package routes

import (
	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/handlers"
	"github.com/Nymfarious/drumline-auth/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	twoFactorHandler *handlers.TwoFactorHandler,
	deviceHandler *handlers.DeviceHandler,
	tokenManager *auth.TokenManager,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes. The sign-in endpoints carry their own per-account
	// throttling; this per-IP limit is the transport backstop.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/sign-in", authHandler.SignIn)
		r.Post("/auth/sign-in/2fa", authHandler.VerifyTwoFactor)
	})

	// Protected routes - a valid session token is required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(tokenManager))

		r.Post("/auth/sign-out", authHandler.SignOut)

		r.Get("/security/2fa", twoFactorHandler.Status)
		r.Post("/security/2fa/setup", twoFactorHandler.Setup)
		r.Post("/security/2fa/enable", twoFactorHandler.Enable)
		r.Post("/security/2fa/disable", twoFactorHandler.Disable)
		r.Post("/security/2fa/backup-codes", twoFactorHandler.RegenerateBackupCodes)

		r.Get("/security/devices", deviceHandler.List)
		r.Post("/security/devices/{deviceID}/trust", deviceHandler.Trust)
		r.Delete("/security/devices/{deviceID}", deviceHandler.Revoke)
	})
}
