package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
	pkglogger "github.com/Nymfarious/drumline-auth/pkg/logger"
)

// SecurityEventRepository defines the interface for security event persistence
type SecurityEventRepository interface {
	Insert(ctx context.Context, event *models.SecurityEvent) error
	InsertBatch(ctx context.Context, events []*models.SecurityEvent) error
}

// SecurityEventService is the fire-and-forget security event sink. Sensitive
// detail keys are sanitized before anything is stored. Critical events are
// flushed to the store immediately; everything else is buffered and written
// in periodic batches.
type SecurityEventService struct {
	repo          SecurityEventRepository
	logger        *slog.Logger
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []*models.SecurityEvent
}

// NewSecurityEventService creates a new SecurityEventService
func NewSecurityEventService(repo SecurityEventRepository, logger *slog.Logger, flushInterval time.Duration) *SecurityEventService {
	return &SecurityEventService{
		repo:          repo,
		logger:        logger,
		flushInterval: flushInterval,
	}
}

// LogEvent records a security event. It never returns an error and never
// blocks the calling flow on persistence failure.
func (s *SecurityEventService) LogEvent(ctx context.Context, eventType, severity string, details models.EventDetails, userID, email, ipAddress string) {
	event := &models.SecurityEvent{
		EventType: eventType,
		Severity:  severity,
		Details:   models.EventDetails(pkglogger.SanitizeDetails(details)),
		CreatedAt: time.Now(),
	}
	if userID != "" {
		event.UserID = &userID
	}
	if email != "" {
		event.Email = &email
	}
	if ipAddress != "" {
		event.IPAddress = &ipAddress
	}

	// Dual-write: the log stream sees every event immediately
	s.logger.LogAttrs(ctx, severityLevel(severity), "security_event",
		slog.String("event_type", eventType),
		slog.String("severity", severity),
		slog.String("user_id", userID),
		slog.Any("details", event.Details),
	)

	if severity == models.SeverityCritical {
		if err := s.repo.Insert(ctx, event); err != nil {
			s.logger.Error("failed to persist critical security event",
				slog.String("event_type", eventType), slog.Any("error", err))
		}
		return
	}

	s.mu.Lock()
	s.buffer = append(s.buffer, event)
	s.mu.Unlock()
}

// Start runs the periodic flush loop until the context is cancelled, then
// drains the remaining buffer.
func (s *SecurityEventService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Flush(flushCtx)
			cancel()
			return
		}
	}
}

// Flush writes all buffered events in one batch.
func (s *SecurityEventService) Flush(ctx context.Context) {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	if err := s.repo.InsertBatch(ctx, pending); err != nil {
		s.logger.Error("failed to flush security events",
			slog.Int("count", len(pending)), slog.Any("error", err))
	}
}

func severityLevel(severity string) slog.Level {
	switch severity {
	case models.SeverityWarning:
		return slog.LevelWarn
	case models.SeverityError, models.SeverityCritical:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
