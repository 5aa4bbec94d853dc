package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// LockoutRepository defines the interface for lockout database operations
type LockoutRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.AccountLockout, error)
	IncrementOrCreate(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error)
	SetLockedUntil(ctx context.Context, id string, until time.Time) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteByID(ctx context.Context, id string) error
}

// LockoutConfig holds configuration for progressive account lockout
type LockoutConfig struct {
	MaxAttempts int
	Schedule    []time.Duration
}

// LockoutService implements the persistent, cross-session progressive
// lockout. It is the authoritative guard behind the in-memory throttle.
// All bookkeeping failures degrade open: a broken lockout store must never
// block sign-in on its own.
type LockoutService struct {
	repo     LockoutRepository
	events   *SecurityEventService
	notifier AlertNotifier
	config   LockoutConfig
	logger   *slog.Logger
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo LockoutRepository, events *SecurityEventService, notifier AlertNotifier, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		repo:     repo,
		events:   events,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// IsAccountLocked reports whether an email is currently locked out. A row
// whose lockout has lapsed is purged on read (self-healing) and reported as
// unlocked.
func (s *LockoutService) IsAccountLocked(ctx context.Context, email string) models.LockoutStatus {
	lockout, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to check account lockout", slog.Any("error", err))
		}
		return models.LockoutStatus{Locked: false}
	}

	now := time.Now()
	if lockout.IsActive(now) {
		remaining := int(math.Ceil(lockout.LockedUntil.Sub(now).Minutes()))
		if remaining < 1 {
			remaining = 1
		}
		return models.LockoutStatus{Locked: true, RemainingMinutes: remaining}
	}

	if lockout.LockedUntil != nil {
		// Lapsed lockout: purge the row so history restarts clean
		if err := s.repo.DeleteByID(ctx, lockout.ID); err != nil {
			s.logger.Error("failed to purge lapsed lockout", slog.Any("error", err))
		}
	}

	return models.LockoutStatus{Locked: false}
}

// RecordFailedAttempt bumps the persistent failure counter and arms the
// lockout once the count climbs past the threshold. The in-memory rate
// limiter already denies at exactly the threshold within one window, so the
// lockout engages only on sustained abuse across windows. Returns whether
// this attempt tripped a lockout.
func (s *LockoutService) RecordFailedAttempt(ctx context.Context, email string, ipAddress *string, userID string) bool {
	lockout, err := s.repo.IncrementOrCreate(ctx, email, ipAddress)
	if err != nil {
		s.logger.Error("failed to record failed attempt", slog.Any("error", err))
		return false
	}

	if lockout.FailedAttempts <= s.config.MaxAttempts {
		return false
	}

	duration := s.lockoutDuration(lockout.FailedAttempts)
	until := time.Now().Add(duration)
	if err := s.repo.SetLockedUntil(ctx, lockout.ID, until); err != nil {
		s.logger.Error("failed to arm account lockout", slog.Any("error", err))
		return false
	}

	s.events.LogEvent(ctx, models.EventTypeSuspiciousActivity, models.SeverityError,
		models.EventDetails{
			"reason":           "account_locked",
			"failed_attempts":  lockout.FailedAttempts,
			"lockout_minutes":  int(duration.Minutes()),
		}, userID, email, derefString(ipAddress))

	s.logger.Warn("account locked",
		slog.Int("failed_attempts", lockout.FailedAttempts),
		slog.Duration("duration", duration))

	go s.notifier.NotifyAccountLocked(context.WithoutCancel(ctx), email, int(duration.Minutes()))

	return true
}

// ResetFailedAttempts deletes the lockout row outright: a successful
// credential check fully clears history for the identifier.
func (s *LockoutService) ResetFailedAttempts(ctx context.Context, email string) {
	if err := s.repo.DeleteByEmail(ctx, email); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to reset failed attempts", slog.Any("error", err))
	}
}

// ClearLockout removes a lockout row by ID (explicit admin clear).
func (s *LockoutService) ClearLockout(ctx context.Context, lockoutID string) error {
	return s.repo.DeleteByID(ctx, lockoutID)
}

// lockoutDuration walks the progressive schedule. The episode number is
// floor(attempts / maxAttempts); repeat offenders climb the ladder until the
// final tier caps it.
func (s *LockoutService) lockoutDuration(failedAttempts int) time.Duration {
	episode := failedAttempts / s.config.MaxAttempts
	if episode < 1 {
		episode = 1
	}

	idx := episode - 1
	if idx >= len(s.config.Schedule) {
		idx = len(s.config.Schedule) - 1
	}

	return s.config.Schedule[idx]
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
