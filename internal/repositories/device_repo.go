package repositories

import (
	"context"
	"fmt"

	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeviceSessionRepository handles database operations for device sessions
type DeviceSessionRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceSessionRepository creates a new DeviceSessionRepository
func NewDeviceSessionRepository(db *database.DB) *DeviceSessionRepository {
	return &DeviceSessionRepository{pool: db.Pool}
}

const deviceColumns = `id, user_id, fingerprint, name, type, browser_info, is_trusted, last_seen, created_at, expires_at`

func scanDeviceRow(scanner interface{ Scan(dest ...interface{}) error }) (*models.DeviceSession, error) {
	var d models.DeviceSession
	err := scanner.Scan(
		&d.ID, &d.UserID, &d.Fingerprint, &d.Name, &d.Type, &d.BrowserInfo,
		&d.IsTrusted, &d.LastSeen, &d.CreatedAt, &d.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &d, nil
}

// GetByFingerprint fetches the session row for a (user, fingerprint) pair.
// Expired rows are invisible to reads.
func (r *DeviceSessionRepository) GetByFingerprint(ctx context.Context, userID, fingerprint string) (*models.DeviceSession, error) {
	query := `
		SELECT ` + deviceColumns + ` FROM device_sessions
		WHERE user_id = $1 AND fingerprint = $2 AND expires_at > now()
	`

	return scanDeviceRow(r.pool.QueryRow(ctx, query, userID, fingerprint))
}

// GetByID fetches a device session scoped to its owner.
func (r *DeviceSessionRepository) GetByID(ctx context.Context, userID, deviceID string) (*models.DeviceSession, error) {
	query := `
		SELECT ` + deviceColumns + ` FROM device_sessions
		WHERE id = $1 AND user_id = $2
	`

	return scanDeviceRow(r.pool.QueryRow(ctx, query, deviceID, userID))
}

// Create inserts a new device session row.
func (r *DeviceSessionRepository) Create(ctx context.Context, session *models.DeviceSession) (*models.DeviceSession, error) {
	query := `
		INSERT INTO device_sessions (user_id, fingerprint, name, type, browser_info, is_trusted, last_seen, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
		RETURNING ` + deviceColumns + `
	`

	return scanDeviceRow(r.pool.QueryRow(ctx, query,
		session.UserID, session.Fingerprint, session.Name, session.Type,
		session.BrowserInfo, session.IsTrusted, session.ExpiresAt,
	))
}

// Touch refreshes last_seen and the stored browser-info snapshot on
// re-registration of a known device. The trust flag is never changed here.
func (r *DeviceSessionRepository) Touch(ctx context.Context, id string, browserInfo models.BrowserInfo) error {
	query := `
		UPDATE device_sessions
		SET last_seen = now(), browser_info = $2
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, browserInfo)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByUser returns all unexpired device sessions for a user, most recently
// seen first.
func (r *DeviceSessionRepository) ListByUser(ctx context.Context, userID string) ([]*models.DeviceSession, error) {
	query := `
		SELECT ` + deviceColumns + ` FROM device_sessions
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY last_seen DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	sessions := make([]*models.DeviceSession, 0)
	for rows.Next() {
		session, err := scanDeviceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device sessions: %w", err)
	}

	return sessions, nil
}

// SetTrusted flips the explicit trust flag on a device, scoped to its owner.
func (r *DeviceSessionRepository) SetTrusted(ctx context.Context, userID, deviceID string, trusted bool) error {
	query := `
		UPDATE device_sessions
		SET is_trusted = $3
		WHERE id = $1 AND user_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, deviceID, userID, trusted)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete revokes a device session, scoped to its owner.
func (r *DeviceSessionRepository) Delete(ctx context.Context, userID, deviceID string) error {
	query := `DELETE FROM device_sessions WHERE id = $1 AND user_id = $2`

	tag, err := r.pool.Exec(ctx, query, deviceID, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired removes device sessions past their expiry.
func (r *DeviceSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM device_sessions WHERE expires_at <= now()`

	tag, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired device sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
