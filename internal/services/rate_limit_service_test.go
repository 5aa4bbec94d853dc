package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRateLimiter(maxAttempts int, window time.Duration) (*RateLimitService, *time.Time) {
	svc := NewRateLimitService(RateLimitConfig{
		MaxAttempts: maxAttempts,
		Window:      window,
	}, slog.Default())

	clock := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestRateLimitService_Check_FreshIdentifierAllowed(t *testing.T) {
	svc, _ := newTestRateLimiter(5, 15*time.Minute)

	status := svc.Check("drummer@example.com")

	assert.True(t, status.Allowed)
	assert.Zero(t, status.RetryAfterMinutes)
}

func TestRateLimitService_DeniesAtThreshold(t *testing.T) {
	svc, _ := newTestRateLimiter(5, 15*time.Minute)

	for i := 0; i < 4; i++ {
		svc.Record("drummer@example.com", false)
		assert.True(t, svc.Check("drummer@example.com").Allowed, "attempt %d should still pass", i+2)
	}

	svc.Record("drummer@example.com", false)
	status := svc.Check("drummer@example.com")

	assert.False(t, status.Allowed)
	assert.Equal(t, 15, status.RetryAfterMinutes)
}

func TestRateLimitService_SuccessClearsCounter(t *testing.T) {
	svc, _ := newTestRateLimiter(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		svc.Record("drummer@example.com", false)
	}
	assert.False(t, svc.Check("drummer@example.com").Allowed)

	svc.Record("drummer@example.com", true)

	assert.True(t, svc.Check("drummer@example.com").Allowed)
}

func TestRateLimitService_WindowLapseResetsCounter(t *testing.T) {
	svc, clock := newTestRateLimiter(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		svc.Record("drummer@example.com", false)
	}
	assert.False(t, svc.Check("drummer@example.com").Allowed)

	*clock = clock.Add(16 * time.Minute)

	assert.True(t, svc.Check("drummer@example.com").Allowed)
}

func TestRateLimitService_FailureSlidesWindow(t *testing.T) {
	svc, clock := newTestRateLimiter(5, 15*time.Minute)

	// Failures spread ten minutes apart: each one slides the window
	// forward, so the counter never lapses between them.
	for i := 0; i < 5; i++ {
		svc.Record("drummer@example.com", false)
		*clock = clock.Add(10 * time.Minute)
	}

	status := svc.Check("drummer@example.com")
	assert.False(t, status.Allowed)
}

func TestRateLimitService_IdentifiersAreIndependent(t *testing.T) {
	svc, _ := newTestRateLimiter(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		svc.Record("drummer@example.com", false)
	}

	assert.False(t, svc.Check("drummer@example.com").Allowed)
	assert.True(t, svc.Check("snare@example.com").Allowed)
}

func TestRateLimitService_RetryAfterRoundsUp(t *testing.T) {
	svc, clock := newTestRateLimiter(5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		svc.Record("drummer@example.com", false)
	}

	*clock = clock.Add(14*time.Minute + 30*time.Second)

	status := svc.Check("drummer@example.com")
	assert.False(t, status.Allowed)
	assert.Equal(t, 1, status.RetryAfterMinutes)
}
