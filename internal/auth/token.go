package auth

import (
	"fmt"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates the two token kinds this service uses:
// session tokens for authenticated users and short-lived challenge tokens
// carrying the pending two-factor state. While a challenge token is the only
// thing a caller holds, no authenticated session exists anywhere.
type TokenManager struct {
	secret               string
	sessionTokenExpiry   time.Duration
	sessionMaxAge        time.Duration
	challengeTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, sessionExpiry, sessionMaxAge, challengeExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:               secret,
		sessionTokenExpiry:   sessionExpiry,
		sessionMaxAge:        sessionMaxAge,
		challengeTokenExpiry: challengeExpiry,
	}
}

// GenerateSessionToken creates a session token. authTime is when credentials
// (and the second factor, if enabled) were verified; it is carried through
// refreshes so the wall-clock ceiling cannot be reset by re-issuing tokens.
func (tm *TokenManager) GenerateSessionToken(userID, email string, authTime time.Time) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:     models.TokenTypeSession,
		UserID:   userID,
		Email:    email,
		AuthTime: authTime.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.sessionTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// GenerateChallengeToken creates the transient pending-two-factor token.
// It is not a session: it grants nothing except the right to present a
// verification code for this user within the expiry window.
func (tm *TokenManager) GenerateChallengeToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		Type:   models.TokenTypeChallenge,
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.challengeTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}

	return tokenString, nil
}

// ValidateSessionToken verifies a session token, including the hard
// wall-clock ceiling on auth_time age. A token past the ceiling is rejected
// even if its own expiry has not passed.
func (tm *TokenManager) ValidateSessionToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != models.TokenTypeSession {
		return nil, models.ErrUnauthorized
	}

	if claims.AuthTime == 0 {
		return nil, models.ErrUnauthorized
	}
	authTime := time.Unix(claims.AuthTime, 0)
	if time.Since(authTime) > tm.sessionMaxAge {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// ValidateChallengeToken verifies a pending two-factor challenge token.
func (tm *TokenManager) ValidateChallengeToken(tokenString string) (*models.TokenClaims, error) {
	claims, err := tm.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != models.TokenTypeChallenge {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

func (tm *TokenManager) parse(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" || claims.UserID == "" {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
