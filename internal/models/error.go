package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Sign-in protocol errors. Wrong password and unknown email are
	// deliberately collapsed into ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("too many attempts")
	ErrAccountLocked      = errors.New("account is temporarily locked")

	// ErrTwoFactorRequired is a control-flow signal, not a failure: credential
	// verification succeeded but the sign-in is paused for a second factor.
	ErrTwoFactorRequired = errors.New("two-factor verification required")

	// ErrInvalidTwoFactorCode covers bad TOTP, bad backup code, and 2FA not
	// being enabled at all, so callers cannot probe which one happened.
	ErrInvalidTwoFactorCode = errors.New("invalid verification code")

	ErrTwoFactorRateLimited = errors.New("too many verification attempts")

	// ErrIdentityUnavailable means the identity provider could not be reached.
	ErrIdentityUnavailable = errors.New("identity provider unavailable")
)
