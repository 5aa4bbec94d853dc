package services

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// RateLimitConfig holds configuration for the in-memory attempt throttle
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RateLimitService is the process-local sliding-window throttle on sign-in
// attempts. It is a soft, best-effort layer: state is lost on restart and
// never shared across instances. The persistent lockout is the authoritative
// guard; this one just takes the edge off bursts.
type RateLimitService struct {
	config RateLimitConfig
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]*attemptCounter

	now func() time.Time
}

type attemptCounter struct {
	count       int
	windowStart time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		config:   config,
		logger:   logger,
		counters: make(map[string]*attemptCounter),
		now:      time.Now,
	}
}

// Check reports whether an attempt for the identifier is currently allowed.
// Counters reset lazily: a window that has lapsed counts as zero.
func (s *RateLimitService) Check(identifier string) models.RateLimitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	counter, ok := s.counters[identifier]
	if !ok || now.Sub(counter.windowStart) > s.config.Window {
		if ok {
			delete(s.counters, identifier)
		}
		return models.RateLimitStatus{Allowed: true}
	}

	if counter.count >= s.config.MaxAttempts {
		remaining := counter.windowStart.Add(s.config.Window).Sub(now)
		retryAfter := int(math.Ceil(remaining.Minutes()))
		if retryAfter < 1 {
			retryAfter = 1
		}

		s.logger.Warn("sign-in attempt rate limited",
			slog.Int("attempts", counter.count),
			slog.Int("retry_after_minutes", retryAfter))

		return models.RateLimitStatus{Allowed: false, RetryAfterMinutes: retryAfter}
	}

	return models.RateLimitStatus{Allowed: true}
}

// Record notes the outcome of an attempt. Failure increments the counter and
// slides the window to now; success clears the identifier entirely.
func (s *RateLimitService) Record(identifier string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		delete(s.counters, identifier)
		return
	}

	now := s.now()
	counter, ok := s.counters[identifier]
	if !ok || now.Sub(counter.windowStart) > s.config.Window {
		s.counters[identifier] = &attemptCounter{count: 1, windowStart: now}
		return
	}

	counter.count++
	counter.windowStart = now
}
