package models

import "time"

// AccountLockout tracks persistent failed-attempt counts for an identifier.
// One row per email; IPAddress is best-effort and may be empty.
type AccountLockout struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	IPAddress      *string    `db:"ip_address"`
	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// IsActive reports whether the lockout is currently in force.
func (l *AccountLockout) IsActive(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// LockoutStatus is the result of a lockout check.
type LockoutStatus struct {
	Locked           bool
	RemainingMinutes int
}

// RateLimitStatus is the result of an in-memory rate limit check.
type RateLimitStatus struct {
	Allowed           bool
	RetryAfterMinutes int
}
