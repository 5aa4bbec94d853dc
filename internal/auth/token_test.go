package auth

import (
	"testing"
	"time"

	"github.com/Nymfarious/drumline-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *TokenManager {
	return NewTokenManager("test-signing-secret-at-least-32-chars!!",
		time.Hour, 24*time.Hour, 5*time.Minute)
}

func TestTokenManager_SessionToken_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()
	authTime := time.Now()

	token, err := tm.GenerateSessionToken("user_1", "drummer@example.com", authTime)
	require.NoError(t, err)

	claims, err := tm.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
	assert.Equal(t, "drummer@example.com", claims.Email)
	assert.Equal(t, models.TokenTypeSession, claims.Type)
	assert.Equal(t, authTime.Unix(), claims.AuthTime)
}

func TestTokenManager_SessionToken_WallClockCeiling(t *testing.T) {
	tm := newTestTokenManager()

	// Token is within its own expiry but the original authentication is
	// older than the 24-hour ceiling.
	token, err := tm.GenerateSessionToken("user_1", "drummer@example.com", time.Now().Add(-25*time.Hour))
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_SessionToken_NearCeilingStillValid(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateSessionToken("user_1", "drummer@example.com", time.Now().Add(-23*time.Hour))
	require.NoError(t, err)

	_, err = tm.ValidateSessionToken(token)
	assert.NoError(t, err)
}

func TestTokenManager_ChallengeToken_RoundTrip(t *testing.T) {
	tm := newTestTokenManager()

	token, err := tm.GenerateChallengeToken("user_1", "drummer@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateChallengeToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeChallenge, claims.Type)
	assert.Equal(t, "user_1", claims.UserID)
}

func TestTokenManager_TokenTypesAreNotInterchangeable(t *testing.T) {
	tm := newTestTokenManager()

	session, err := tm.GenerateSessionToken("user_1", "drummer@example.com", time.Now())
	require.NoError(t, err)
	challenge, err := tm.GenerateChallengeToken("user_1", "drummer@example.com")
	require.NoError(t, err)

	_, err = tm.ValidateChallengeToken(session)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = tm.ValidateSessionToken(challenge)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := newTestTokenManager()
	other := NewTokenManager("completely-different-secret-material!!!",
		time.Hour, 24*time.Hour, 5*time.Minute)

	token, err := tm.GenerateSessionToken("user_1", "drummer@example.com", time.Now())
	require.NoError(t, err)

	_, err = other.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := newTestTokenManager()

	_, err := tm.ValidateSessionToken("not.a.token")
	assert.Error(t, err)

	_, err = tm.ValidateSessionToken("")
	assert.Error(t, err)
}

func TestTokenManager_ExpiredChallengeRejected(t *testing.T) {
	tm := NewTokenManager("test-signing-secret-at-least-32-chars!!",
		time.Hour, 24*time.Hour, -time.Minute)

	token, err := tm.GenerateChallengeToken("user_1", "drummer@example.com")
	require.NoError(t, err)

	_, err = tm.ValidateChallengeToken(token)
	assert.Error(t, err)
}
