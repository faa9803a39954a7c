package service

import (
	"context"
)

// AccountAPI wraps the backend's account-management endpoints. Every call
// attaches the current identity token as a bearer credential.
//
// Unlink failures are classified into the domain taxonomy by the
// implementation: a "password required" answer surfaces as
// ErrPasswordRequired, a "nothing linked" answer as ErrNoLinkedIdentity, and
// anything else as a backend call error carrying the server's message.
type AccountAPI interface {
	// UnlinkIdentity removes the named federated identity from the account.
	UnlinkIdentity(ctx context.Context, providerName string) error

	// SetPassword sets a local password on the account.
	SetPassword(ctx context.Context, password string) error

	// LinkIdentity attaches the federated identity presented by its identity
	// token to the signed-in account.
	LinkIdentity(ctx context.Context, providerName, externalIDToken string) error
}

// AuthenticatedRequester issues arbitrary backend requests with the current
// bearer token attached. Failures embed the HTTP status and status text;
// retrying is the caller's business.
type AuthenticatedRequester interface {
	MakeAuthenticatedRequest(ctx context.Context, method, path string, body, out any) error
}
