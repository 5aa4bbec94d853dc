package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LockoutRepository handles database operations for account lockouts
type LockoutRepository struct {
	pool *pgxpool.Pool
}

// NewLockoutRepository creates a new LockoutRepository
func NewLockoutRepository(db *database.DB) *LockoutRepository {
	return &LockoutRepository{pool: db.Pool}
}

const lockoutColumns = `id, email, ip_address, failed_attempts, locked_until, created_at, updated_at`

// GetByEmail fetches the lockout row for an email, if any.
func (r *LockoutRepository) GetByEmail(ctx context.Context, email string) (*models.AccountLockout, error) {
	query := `
		SELECT ` + lockoutColumns + ` FROM account_lockouts
		WHERE email = $1
	`

	var l models.AccountLockout
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&l.ID, &l.Email, &l.IPAddress, &l.FailedAttempts, &l.LockedUntil,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &l, nil
}

// IncrementOrCreate bumps the failed-attempt counter for an email, creating
// the row on first failure. The increment happens in a single statement so
// concurrent failures for the same email never drop an increment.
func (r *LockoutRepository) IncrementOrCreate(ctx context.Context, email string, ipAddress *string) (*models.AccountLockout, error) {
	query := `
		INSERT INTO account_lockouts (email, ip_address, failed_attempts)
		VALUES ($1, $2, 1)
		ON CONFLICT (email) DO UPDATE SET
			failed_attempts = account_lockouts.failed_attempts + 1,
			ip_address = COALESCE(EXCLUDED.ip_address, account_lockouts.ip_address),
			updated_at = now()
		RETURNING ` + lockoutColumns + `
	`

	var l models.AccountLockout
	err := r.pool.QueryRow(ctx, query, email, ipAddress).Scan(
		&l.ID, &l.Email, &l.IPAddress, &l.FailedAttempts, &l.LockedUntil,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &l, nil
}

// SetLockedUntil arms the lockout on a row.
func (r *LockoutRepository) SetLockedUntil(ctx context.Context, id string, until time.Time) error {
	query := `
		UPDATE account_lockouts
		SET locked_until = $2, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, until)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByEmail removes the lockout row for an email outright. A successful
// authentication fully clears failure history for the identifier.
func (r *LockoutRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM account_lockouts WHERE email = $1`
	_, err := r.pool.Exec(ctx, query, email)
	return database.MapPostgresError(err)
}

// DeleteByID removes a lockout row by ID (admin clear, lazy purge).
func (r *LockoutRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM account_lockouts WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}

// DeleteExpired removes rows whose lockout has lapsed and whose last update
// is older than the retention window, so stale counters don't linger.
func (r *LockoutRepository) DeleteExpired(ctx context.Context, staleBefore time.Time) (int64, error) {
	query := `
		DELETE FROM account_lockouts
		WHERE (locked_until IS NOT NULL AND locked_until <= now() AND updated_at < $1)
		   OR (locked_until IS NULL AND updated_at < $1)
	`

	tag, err := r.pool.Exec(ctx, query, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired lockouts: %w", err)
	}
	return tag.RowsAffected(), nil
}
