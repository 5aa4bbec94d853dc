package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/repositories"
)

// Retention windows for the periodic sweep.
const (
	lockoutStaleAfter = 7 * 24 * time.Hour
	attemptRetention  = 24 * time.Hour
	eventRetention    = 90 * 24 * time.Hour
	sweepTimeout      = 30 * time.Second
)

// CleanupManager periodically sweeps expired protection and tracking state:
// stale lockout rows, expired device sessions, old verification attempts,
// and aged-out security events.
type CleanupManager struct {
	lockoutRepo *repositories.LockoutRepository
	deviceRepo  *repositories.DeviceSessionRepository
	attemptRepo *repositories.TwoFactorAttemptRepository
	eventRepo   *repositories.SecurityEventRepository
	logger      *slog.Logger
	interval    time.Duration
	stopCh      chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	lockoutRepo *repositories.LockoutRepository,
	deviceRepo *repositories.DeviceSessionRepository,
	attemptRepo *repositories.TwoFactorAttemptRepository,
	eventRepo *repositories.SecurityEventRepository,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		lockoutRepo: lockoutRepo,
		deviceRepo:  deviceRepo,
		attemptRepo: attemptRepo,
		eventRepo:   eventRepo,
		logger:      logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sweep. Runs once immediately, then on the
// configured interval until stopped or the context is cancelled.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runSweep(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}

func (cm *CleanupManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	now := time.Now()

	cm.sweep("stale lockouts", func() (int64, error) {
		return cm.lockoutRepo.DeleteExpired(sweepCtx, now.Add(-lockoutStaleAfter))
	})
	cm.sweep("expired device sessions", func() (int64, error) {
		return cm.deviceRepo.DeleteExpired(sweepCtx)
	})
	cm.sweep("old verification attempts", func() (int64, error) {
		return cm.attemptRepo.DeleteOlderThan(sweepCtx, now.Add(-attemptRetention))
	})
	cm.sweep("aged security events", func() (int64, error) {
		return cm.eventRepo.DeleteOlderThan(sweepCtx, now.Add(-eventRetention))
	})
}

func (cm *CleanupManager) sweep(what string, fn func() (int64, error)) {
	deleted, err := fn()
	if err != nil {
		cm.logger.Error("cleanup sweep failed",
			slog.String("target", what), slog.Any("error", err))
		return
	}
	if deleted > 0 {
		cm.logger.Info("cleanup sweep completed",
			slog.String("target", what), slog.Int64("rows_deleted", deleted))
	}
}
