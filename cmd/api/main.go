package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/auth"
	"github.com/Nymfarious/drumline-auth/internal/background"
	"github.com/Nymfarious/drumline-auth/internal/config"
	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/handlers"
	"github.com/Nymfarious/drumline-auth/internal/identity"
	middlewareCustom "github.com/Nymfarious/drumline-auth/internal/middleware"
	"github.com/Nymfarious/drumline-auth/internal/repositories"
	"github.com/Nymfarious/drumline-auth/internal/routes"
	"github.com/Nymfarious/drumline-auth/internal/services"
	pkghttp "github.com/Nymfarious/drumline-auth/pkg/http"
	pkglogger "github.com/Nymfarious/drumline-auth/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run schema migrations before opening the pool
	if err := database.Migrate(cfg.Database.DSN()); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	lockoutRepo := repositories.NewLockoutRepository(db)
	deviceRepo := repositories.NewDeviceSessionRepository(db)
	twoFactorRepo := repositories.NewTwoFactorRepository(db)
	attemptRepo := repositories.NewTwoFactorAttemptRepository(db)
	eventRepo := repositories.NewSecurityEventRepository(db)

	// Identity provider
	provider := identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey, cfg.Identity.Timeout, logger)

	// Security event sink
	eventService := services.NewSecurityEventService(eventRepo, logger, time.Minute)

	// Alert notifier
	var notifier services.AlertNotifier
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewSESAlertService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize alert service", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	} else {
		notifier = services.NoopAlertService{}
	}

	// Token manager and timing equalization
	tokenManager := auth.NewTokenManager(
		cfg.Security.JWTSecret,
		cfg.Security.SessionTokenExpiry,
		cfg.Security.SessionMaxAge,
		cfg.Security.ChallengeTokenExpiry,
	)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Security.TimingDelayBaseMs,
		RandomDelayMs: cfg.Security.TimingDelayRandomMs,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Protection and tracking services
	rateLimitService := services.NewRateLimitService(services.RateLimitConfig{
		MaxAttempts: cfg.Security.RateLimitMaxAttempts,
		Window:      cfg.Security.RateLimitWindow,
	}, logger)

	lockoutService := services.NewLockoutService(lockoutRepo, eventService, notifier, services.LockoutConfig{
		MaxAttempts: cfg.Security.LockoutMaxAttempts,
		Schedule:    cfg.Security.LockoutSchedule,
	}, logger)

	twoFactorService := services.NewTwoFactorService(twoFactorRepo, attemptRepo,
		auth.NewTOTPManager("Drumline"), eventService, services.TwoFactorConfig{
			BackupCodeCount: 10,
			MaxAttempts:     cfg.Security.TwoFactorMaxAttempts,
			AttemptWindow:   cfg.Security.TwoFactorAttemptWindow,
		}, logger)

	deviceService := services.NewDeviceService(deviceRepo, eventService, notifier,
		cfg.Security.DeviceSessionTTL, logger)

	signInService := services.NewSignInService(
		provider,
		rateLimitService,
		lockoutService,
		twoFactorService,
		deviceService,
		tokenManager,
		timingDelay,
		eventService,
		auditLogger,
		logger,
	)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(signInService, ipConfig)
	twoFactorHandler := handlers.NewTwoFactorHandler(twoFactorService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)

	// Background workers
	cleanupManager := background.NewCleanupManager(lockoutRepo, deviceRepo, attemptRepo, eventRepo,
		logger, cfg.Security.CleanupInterval)

	// Router
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, twoFactorHandler, deviceHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background loops: cleanup sweeps and the event batch flusher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go cleanupManager.Start(workerCtx)
	go eventService.Start(workerCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	workerCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
