package service

import (
	"context"

	"cardistry-catalog/internal/domains/session/model"
)

// Service wraps sign-in and sign-out and publishes identity changes.
type Service interface {
	// Register creates an account for the password identity provider.
	Register(ctx context.Context, req model.RegisterRequest) (*model.Identity, error)

	// SignIn runs the identity-provider flow and issues a session token.
	// Rejections are *model.SessionError wrapping model.ErrAuthFailure.
	SignIn(ctx context.Context, req model.SignInRequest) (*model.SignInResponse, error)

	// SignOut revokes the token's session. Unknown tokens are ignored.
	SignOut(ctx context.Context, token string) error

	// Current resolves a token; (nil, nil) means signed out.
	Current(ctx context.Context, token string) (*model.Session, error)

	// Subscribe returns a stream of identity changes and its cancel func.
	Subscribe() (<-chan model.IdentityChange, func())
}

// IdentityProvider authenticates credentials into an Identity.
type IdentityProvider interface {
	Authenticate(ctx context.Context, req model.SignInRequest) (*model.Identity, error)
}
