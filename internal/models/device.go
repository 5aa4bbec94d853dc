package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// Device type classification values. Approximate, display-only — never used
// for security decisions.
const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeUnknown = "unknown"
)

// DeviceInfo is the client-environment snapshot submitted with a sign-in.
// The fingerprint is derived from these signals; they are a heuristic
// identity tag, not a secret.
type DeviceInfo struct {
	UserAgent           string `json:"user_agent" validate:"required"`
	Language            string `json:"language"`
	Platform            string `json:"platform"`
	ScreenWidth         int    `json:"screen_width"`
	ScreenHeight        int    `json:"screen_height"`
	ColorDepth          int    `json:"color_depth"`
	TimezoneOffset      int    `json:"timezone_offset"`
	LocalStorage        bool   `json:"local_storage"`
	SessionStorage      bool   `json:"session_storage"`
	HardwareConcurrency int    `json:"hardware_concurrency"`
	CanvasHash          string `json:"canvas_hash"`
}

// ClassifyType buckets the device by screen width and user agent.
func (d *DeviceInfo) ClassifyType() string {
	ua := strings.ToLower(d.UserAgent)
	switch {
	case d.ScreenWidth == 0 && ua == "":
		return DeviceTypeUnknown
	case d.ScreenWidth > 0 && d.ScreenWidth < 768, strings.Contains(ua, "mobile"):
		return DeviceTypeMobile
	case d.ScreenWidth >= 768 && d.ScreenWidth < 1024:
		return DeviceTypeTablet
	default:
		return DeviceTypeDesktop
	}
}

// BrowserInfo is the stored JSONB snapshot of the client environment,
// refreshed on every re-registration.
type BrowserInfo struct {
	Browser        string `json:"browser"`
	OS             string `json:"os"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	TimezoneOffset int    `json:"timezone_offset"`
	UserAgent      string `json:"user_agent"`
}

// Scan implements sql.Scanner for JSONB
func (bi *BrowserInfo) Scan(value interface{}) error {
	if value == nil {
		*bi = BrowserInfo{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}
	return json.Unmarshal(bytes, bi)
}

// Value implements driver.Valuer for JSONB
func (bi BrowserInfo) Value() (driver.Value, error) {
	return json.Marshal(bi)
}

// DeviceSession is one row per (user, fingerprint) pair. A new fingerprint
// always creates a new row and is never trusted by default.
type DeviceSession struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	Fingerprint string      `db:"fingerprint"`
	Name        string      `db:"name"`
	Type        string      `db:"type"`
	BrowserInfo BrowserInfo `db:"browser_info"`
	IsTrusted   bool        `db:"is_trusted"`
	LastSeen    time.Time   `db:"last_seen"`
	CreatedAt   time.Time   `db:"created_at"`
	ExpiresAt   time.Time   `db:"expires_at"`
}

// RegisterDeviceResult reports whether registration saw a new fingerprint.
type RegisterDeviceResult struct {
	DeviceID    string
	IsNewDevice bool
}
