package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// User is the identity-provider view of an account. Credentials and password
// hashes live with the provider, never here.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Token types issued by this service
const (
	TokenTypeSession   = "session"
	TokenTypeChallenge = "2fa_challenge"
)

// TokenClaims are the JWT claims for session and two-factor challenge tokens.
// AuthTime records when credentials (and, if enabled, the second factor) were
// last verified; the session middleware enforces a hard ceiling on its age.
type TokenClaims struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	AuthTime int64  `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}
