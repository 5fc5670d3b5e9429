// Package api is the console's view of the REST backend. The backend's
// business logic is out of scope; only the request/response contract lives
// here.
package api

import (
	"context"

	"github.com/jrsteele09/go-platform-console/users"
)

// Authenticator is the session half of the backend contract
type Authenticator interface {
	// FetchCurrentUser fails with ErrUnauthorized for an invalid or expired token
	FetchCurrentUser(ctx context.Context, token string) (*users.User, error)

	// Login fails with ErrInvalidCredentials
	Login(ctx context.Context, credentials users.Credentials) (*AuthResult, error)

	// Register fails with ErrConflict for a duplicate identity or ErrValidation
	Register(ctx context.Context, registration users.Registration) (*AuthResult, error)
}

// Lister is the selection half of the backend contract
type Lister interface {
	ListPlatforms(ctx context.Context, token string) ([]Platform, error)
	ListAccounts(ctx context.Context, token, platformID string) ([]Account, error)
}

type Client interface {
	Authenticator
	Lister
}
