package service

import (
	"context"
	"net/url"

	"lens/internal/domain/entity"
)

// CallbackResult reports what a settled federated callback produced. For a
// login the tokens are already stored; for an account link they are handed
// back untouched so the linking workflow can finish the job.
type CallbackResult struct {
	Action entity.PendingAction // What the redirect was initiated for.
	Tokens entity.TokenSet      // Tokens returned by the code exchange.
}

// OAuthFlow builds federated authorize URLs and settles their callbacks.
type OAuthFlow interface {
	// Available reports whether a federated provider is configured.
	Available() bool

	// BuildAuthorizationURL begins a handshake and composes the provider's
	// authorize URL, embedding the correlation token as 'state'. Pure
	// composition: it never navigates.
	BuildAuthorizationURL(action entity.PendingAction) (string, error)

	// HandleCallback settles a redirect. It fails on a provider 'error'
	// parameter first, then consumes the handshake (a mismatch aborts before
	// any token exchange), then exchanges the code. Login callbacks store
	// the tokens as a new session; link callbacks do not touch the session.
	HandleCallback(ctx context.Context, query url.Values) (*CallbackResult, error)
}
