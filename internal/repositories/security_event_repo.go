package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityEventRepository persists security events
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

const insertEventQuery = `
	INSERT INTO security_events (event_type, severity, user_id, email, ip_address, details)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert writes a single event.
func (r *SecurityEventRepository) Insert(ctx context.Context, event *models.SecurityEvent) error {
	_, err := r.pool.Exec(ctx, insertEventQuery,
		event.EventType, event.Severity, event.UserID, event.Email,
		event.IPAddress, event.Details,
	)
	return database.MapPostgresError(err)
}

// InsertBatch writes a batch of events in one round trip.
func (r *SecurityEventRepository) InsertBatch(ctx context.Context, events []*models.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(insertEventQuery,
			event.EventType, event.Severity, event.UserID, event.Email,
			event.IPAddress, event.Details,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert security event batch: %w", err)
		}
	}

	return nil
}

// ListByUser returns recent events for a user, newest first.
func (r *SecurityEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT id, event_type, severity, user_id, email, ip_address, details, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)
	for rows.Next() {
		var e models.SecurityEvent
		err := rows.Scan(&e.ID, &e.EventType, &e.Severity, &e.UserID, &e.Email,
			&e.IPAddress, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security events: %w", err)
	}

	return events, nil
}

// DeleteOlderThan trims the event log past the retention window.
func (r *SecurityEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM security_events WHERE created_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old security events: %w", err)
	}
	return tag.RowsAffected(), nil
}
