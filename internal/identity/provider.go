// Package identity wraps the hosted identity provider this service delegates
// credential verification and provider-side session control to. Password
// storage and hashing live entirely with the provider.
package identity

import (
	"context"

	"github.com/Nymfarious/drumline-auth/internal/models"
)

// Provider is the identity-provider boundary consumed by the sign-in flow.
type Provider interface {
	// VerifyCredentials checks an email/password pair. Unknown email and
	// wrong password both return models.ErrInvalidCredentials; transport
	// failures return models.ErrIdentityUnavailable.
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)

	// SignOut revokes all provider-side sessions for a user. Used to drop
	// the provider session while a two-factor challenge is pending.
	SignOut(ctx context.Context, userID string) error

	// GetUser fetches the provider's record for a user.
	GetUser(ctx context.Context, userID string) (*models.User, error)
}
