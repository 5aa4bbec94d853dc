package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityEventService_CriticalEventsPersistImmediately(t *testing.T) {
	var inserted *models.SecurityEvent
	repo := &MockSecurityEventRepository{
		InsertFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			inserted = event
			return nil
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Minute)

	svc.LogEvent(context.Background(), models.EventTypeSuspiciousActivity, models.SeverityCritical,
		models.EventDetails{"reason": "test"}, "user_1", "drummer@example.com", "203.0.113.9")

	require.NotNil(t, inserted)
	assert.Equal(t, models.SeverityCritical, inserted.Severity)
	require.NotNil(t, inserted.UserID)
	assert.Equal(t, "user_1", *inserted.UserID)
}

func TestSecurityEventService_NonCriticalEventsAreBuffered(t *testing.T) {
	var batched []*models.SecurityEvent
	repo := &MockSecurityEventRepository{
		InsertFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			t.Fatal("non-critical event must not be inserted directly")
			return nil
		},
		InsertBatchFunc: func(ctx context.Context, events []*models.SecurityEvent) error {
			batched = events
			return nil
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Minute)

	svc.LogEvent(context.Background(), models.EventTypeLoginSuccess, models.SeverityInfo,
		nil, "user_1", "drummer@example.com", "")
	svc.LogEvent(context.Background(), models.EventTypeLoginFailed, models.SeverityWarning,
		nil, "", "drummer@example.com", "")

	assert.Empty(t, batched)

	svc.Flush(context.Background())

	assert.Len(t, batched, 2)
}

func TestSecurityEventService_FlushClearsBuffer(t *testing.T) {
	calls := 0
	repo := &MockSecurityEventRepository{
		InsertBatchFunc: func(ctx context.Context, events []*models.SecurityEvent) error {
			calls++
			return nil
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Minute)

	svc.LogEvent(context.Background(), models.EventTypeLoginSuccess, models.SeverityInfo,
		nil, "user_1", "", "")
	svc.Flush(context.Background())
	svc.Flush(context.Background())

	// A drained buffer does not produce an empty batch write.
	assert.Equal(t, 1, calls)
}

func TestSecurityEventService_SensitiveDetailKeysAreRedacted(t *testing.T) {
	var inserted *models.SecurityEvent
	repo := &MockSecurityEventRepository{
		InsertFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			inserted = event
			return nil
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Minute)

	svc.LogEvent(context.Background(), models.EventTypeSuspiciousActivity, models.SeverityCritical,
		models.EventDetails{
			"reset_token": "tok_abc123",
			"reason":      "test",
		}, "user_1", "", "")

	require.NotNil(t, inserted)
	assert.Equal(t, "[REDACTED]", inserted.Details["reset_token"])
	assert.Equal(t, "test", inserted.Details["reason"])
}

func TestSecurityEventService_StartDrainsOnCancel(t *testing.T) {
	var mu sync.Mutex
	var batched []*models.SecurityEvent
	repo := &MockSecurityEventRepository{
		InsertBatchFunc: func(ctx context.Context, events []*models.SecurityEvent) error {
			mu.Lock()
			batched = append(batched, events...)
			mu.Unlock()
			return nil
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Hour)

	svc.LogEvent(context.Background(), models.EventTypeLoginSuccess, models.SeverityInfo,
		nil, "user_1", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, batched, 1)
}

func TestSecurityEventService_PersistenceFailureDoesNotPanic(t *testing.T) {
	repo := &MockSecurityEventRepository{
		InsertFunc: func(ctx context.Context, event *models.SecurityEvent) error {
			return models.ErrInternalServer
		},
		InsertBatchFunc: func(ctx context.Context, events []*models.SecurityEvent) error {
			return models.ErrInternalServer
		},
	}
	svc := NewSecurityEventService(repo, slog.Default(), time.Minute)

	svc.LogEvent(context.Background(), models.EventTypeSuspiciousActivity, models.SeverityCritical,
		nil, "user_1", "", "")
	svc.LogEvent(context.Background(), models.EventTypeLoginSuccess, models.SeverityInfo,
		nil, "user_1", "", "")
	svc.Flush(context.Background())
}
