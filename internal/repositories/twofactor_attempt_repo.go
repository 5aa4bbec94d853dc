package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TwoFactorAttemptRepository records verification attempts for throttling
type TwoFactorAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewTwoFactorAttemptRepository creates a new TwoFactorAttemptRepository
func NewTwoFactorAttemptRepository(db *database.DB) *TwoFactorAttemptRepository {
	return &TwoFactorAttemptRepository{pool: db.Pool}
}

// RecordAttempt records a single verification attempt.
func (r *TwoFactorAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.TwoFactorAttempt) error {
	query := `
		INSERT INTO two_factor_attempts (user_id, ip_address, success)
		VALUES ($1, $2, $3)
	`

	_, err := r.pool.Exec(ctx, query, attempt.UserID, attempt.IPAddress, attempt.Success)
	return database.MapPostgresError(err)
}

// GetFailedCount returns failed attempts for a user since the given time.
func (r *TwoFactorAttemptRepository) GetFailedCount(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM two_factor_attempts
		WHERE user_id = $1 AND success = FALSE AND attempted_at >= $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count)
	return count, database.MapPostgresError(err)
}

// DeleteOlderThan removes attempts that fell out of every throttle window.
func (r *TwoFactorAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM two_factor_attempts WHERE attempted_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale verification attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
