package service

import (
	"lens/internal/domain/entity"
)

// SessionStore holds the current token set and the federated-login handshake
// state for one browsing context. It keeps at most one of each. This is the
// only shared mutable state in the subsystem, so implementations must be safe
// for concurrent use.
type SessionStore interface {
	// SaveTokens overwrites the stored token set wholesale.
	SaveTokens(tokens entity.TokenSet) error

	// Tokens returns the stored token set and whether one is held.
	Tokens() (entity.TokenSet, bool)

	// ClearTokens drops the stored token set. Sign-out calls this last, so
	// any in-flight authenticated request has already captured the tokens by
	// value.
	ClearTokens() error

	// BeginHandshake stores a fresh random correlation token bound to the
	// given action and returns it for embedding as the outbound 'state'
	// query parameter. A new handshake replaces any previous one.
	BeginHandshake(action entity.PendingAction) (string, error)

	// ConsumeHandshake deletes the stored handshake unconditionally, then
	// returns its pending action only when returnedState matches the stored
	// correlation token exactly. Deleting before comparing means a token can
	// never be consumed twice, whatever the first attempt's outcome.
	ConsumeHandshake(returnedState string) (entity.PendingAction, error)
}
