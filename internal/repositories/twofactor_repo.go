package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/database"
	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/jackc/pgx/v5"
)

// TwoFactorRepository handles database operations for two-factor settings
type TwoFactorRepository struct {
	db *database.DB
}

// NewTwoFactorRepository creates a new TwoFactorRepository
func NewTwoFactorRepository(db *database.DB) *TwoFactorRepository {
	return &TwoFactorRepository{db: db}
}

const twoFactorColumns = `user_id, enabled, secret, backup_codes, created_at, updated_at`

// Get fetches the settings row for a user, if any.
func (r *TwoFactorRepository) Get(ctx context.Context, userID string) (*models.TwoFactorSettings, error) {
	query := `
		SELECT ` + twoFactorColumns + ` FROM two_factor_settings
		WHERE user_id = $1
	`

	var s models.TwoFactorSettings
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.Enabled, &s.Secret, &s.BackupCodes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

// Enable persists the verified secret and freshly issued backup codes.
// Upsert semantics: exactly one settings row per user.
func (r *TwoFactorRepository) Enable(ctx context.Context, userID, secret string, backupCodes models.BackupCodeEntries) error {
	query := `
		INSERT INTO two_factor_settings (user_id, enabled, secret, backup_codes)
		VALUES ($1, TRUE, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = TRUE,
			secret = EXCLUDED.secret,
			backup_codes = EXCLUDED.backup_codes,
			updated_at = now()
	`

	_, err := r.db.Pool.Exec(ctx, query, userID, secret, backupCodes)
	return database.MapPostgresError(err)
}

// Disable clears the secret and backup codes along with the enabled flag.
func (r *TwoFactorRepository) Disable(ctx context.Context, userID string) error {
	query := `
		UPDATE two_factor_settings
		SET enabled = FALSE, secret = NULL, backup_codes = NULL, updated_at = now()
		WHERE user_id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ReplaceBackupCodes swaps the entire backup-code set in one statement, so
// every old code is invalidated atomically with issuance of the new set.
func (r *TwoFactorRepository) ReplaceBackupCodes(ctx context.Context, userID string, backupCodes models.BackupCodeEntries) error {
	query := `
		UPDATE two_factor_settings
		SET backup_codes = $2, updated_at = now()
		WHERE user_id = $1 AND enabled = TRUE
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, backupCodes)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeBackupCode atomically marks one unused backup code as consumed.
// The settings row is locked for the duration of the transaction, so two
// concurrent attempts with the same code serialize and exactly one wins.
// The matches callback decides whether a stored hash corresponds to the
// presented code.
func (r *TwoFactorRepository) ConsumeBackupCode(ctx context.Context, userID string, matches func(codeHash string) bool) (bool, error) {
	consumed := false

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT backup_codes FROM two_factor_settings
			WHERE user_id = $1 AND enabled = TRUE
			FOR UPDATE
		`

		var codes models.BackupCodeEntries
		if err := tx.QueryRow(ctx, query, userID).Scan(&codes); err != nil {
			return database.MapPostgresError(err)
		}

		now := time.Now()
		for i := range codes {
			if codes[i].UsedAt != nil {
				continue
			}
			if !matches(codes[i].CodeHash) {
				continue
			}

			codes[i].UsedAt = &now
			update := `
				UPDATE two_factor_settings
				SET backup_codes = $2, updated_at = now()
				WHERE user_id = $1
			`
			if _, err := tx.Exec(ctx, update, userID, codes); err != nil {
				return database.MapPostgresError(err)
			}
			consumed = true
			return nil
		}

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to consume backup code: %w", err)
	}

	return consumed, nil
}
