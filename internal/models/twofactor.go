package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// TwoFactorSettings holds per-user TOTP state. Exactly one row per user
// (upsert semantics). Secret and backup codes are null whenever Enabled is
// false.
type TwoFactorSettings struct {
	UserID      string            `db:"user_id"`
	Enabled     bool              `db:"enabled"`
	Secret      *string           `db:"secret"`
	BackupCodes BackupCodeEntries `db:"backup_codes"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// BackupCodeEntry is a single one-time backup code. Only the bcrypt hash is
// stored; the plaintext is shown once at issuance.
type BackupCodeEntry struct {
	CodeHash  string     `json:"code_hash"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// BackupCodeEntries is the JSONB-stored set of backup codes.
type BackupCodeEntries []BackupCodeEntry

// Remaining counts codes that have not been consumed.
func (e BackupCodeEntries) Remaining() int {
	n := 0
	for _, entry := range e {
		if entry.UsedAt == nil {
			n++
		}
	}
	return n
}

// Scan implements sql.Scanner for JSONB
func (e *BackupCodeEntries) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}
	return json.Unmarshal(bytes, e)
}

// Value implements driver.Valuer for JSONB
func (e BackupCodeEntries) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// TwoFactorAttempt tracks verification attempts for per-user throttling.
type TwoFactorAttempt struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	IPAddress   string    `db:"ip_address"`
	Success     bool      `db:"success"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// TwoFactorSetup contains provisioning material for 2FA enrollment. The
// secret is not persisted until the caller proves possession with a valid
// code.
type TwoFactorSetup struct {
	Secret    string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
	QRCode    string `json:"qr_code"`
}

// TwoFactorVerifyResult reports a login-time code verification.
type TwoFactorVerifyResult struct {
	Success       bool
	WasBackupCode bool
}
