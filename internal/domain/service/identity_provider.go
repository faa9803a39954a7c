package service

import (
	"context"

	"lens/internal/domain/entity"
)

// SignUpResult reports the provider's answer to a registration request.
type SignUpResult struct {
	UserConfirmed bool   // Whether the pool confirmed the account immediately.
	Destination   string // Masked destination the confirmation code was sent to, if any.
}

// IdentityProvider wraps the hosted identity provider's credential endpoints.
// Implementations validate input locally before touching the network and
// keep the session store current as a side effect of sign-in, session
// refresh, and sign-out.
type IdentityProvider interface {
	// SignUp registers a new account. Email syntax and password policy are
	// checked locally first; a pool-side duplicate surfaces as
	// ErrAlreadyExists.
	SignUp(ctx context.Context, credential entity.Credential) (*SignUpResult, error)

	// ConfirmSignUp confirms a registration with the emailed code. A wrong
	// or expired code surfaces as ErrInvalidCode.
	ConfirmSignUp(ctx context.Context, username, code string) error

	// SignIn authenticates the credential and stores the returned tokens in
	// the session store before returning them. An unconfirmed account
	// surfaces as ErrNotConfirmed and is terminal for this attempt.
	SignIn(ctx context.Context, credential entity.Credential) (entity.TokenSet, error)

	// CurrentSession projects the current session, refreshing tokens from
	// the provider when the stored ones have expired. Absence of a session
	// is a normal result, never an error.
	CurrentSession(ctx context.Context) (entity.Session, error)

	// RefreshSession forces a token refresh regardless of expiry, so claims
	// reflect provider-side changes such as a linked or unlinked identity.
	// Without a refresh token it falls back to the current projection.
	RefreshSession(ctx context.Context) (entity.Session, error)

	// SignOut invalidates the provider-side session reference and then
	// clears the session store, in that order. Calling it twice is safe.
	SignOut(ctx context.Context) error
}
