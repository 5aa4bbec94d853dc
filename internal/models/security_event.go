package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Security event types
const (
	EventTypeLoginSuccess       = "login_success"
	EventTypeLoginFailed        = "login_failed"
	EventTypeSuspiciousActivity = "suspicious_activity"
	EventTypeTwoFactorEnabled   = "2fa_enabled"
	EventTypeTwoFactorDisabled  = "2fa_disabled"
	EventTypeDeviceTrusted      = "device_trusted"
	EventTypeDeviceRevoked      = "device_revoked"
	EventTypeSignOut            = "sign_out"
)

// Severity tiers. Critical events are flushed to the store immediately;
// everything else is batched.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// SecurityEvent is one entry in the security event sink.
type SecurityEvent struct {
	ID        string       `db:"id"`
	EventType string       `db:"event_type"`
	Severity  string       `db:"severity"`
	UserID    *string      `db:"user_id"`
	Email     *string      `db:"email"`
	IPAddress *string      `db:"ip_address"`
	Details   EventDetails `db:"details"`
	CreatedAt time.Time    `db:"created_at"`
}

// EventDetails holds additional context for security events as JSONB.
type EventDetails map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (ed *EventDetails) Scan(value interface{}) error {
	if value == nil {
		*ed = make(EventDetails)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}
	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*ed = EventDetails(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (ed EventDetails) Value() (driver.Value, error) {
	if ed == nil {
		return nil, nil
	}
	return json.Marshal(ed)
}
