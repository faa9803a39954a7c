// Package session implements the session store: the single shared mutable
// state of the subsystem, holding the current token set and the pending
// federated-login handshake.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"lens/config"
	"lens/internal/domain/entity"
	domainerrors "lens/internal/domain/errors"
	"lens/internal/domain/repository"
	"lens/internal/domain/service"
	"lens/internal/errors"
)

const (
	keyTokens    = "tokens"
	keyHandshake = "handshake"

	// stateBytes is the entropy of a correlation token: 32 bytes is 256
	// bits, double the required minimum of 128.
	stateBytes = 32

	defaultHandshakeTTL = 10 * time.Minute
)

// handshakeState is the stored half of one federated redirect round trip.
// It never survives more than one ConsumeHandshake call.
type handshakeState struct {
	CorrelationToken string               `json:"correlationToken"`
	PendingAction    entity.PendingAction `json:"pendingAction"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// Store implements service.SessionStore over a scoped state storage.
type Store struct {
	// mu serializes the handshake round trip. Deleting and comparing under
	// one lock is what makes a correlation token single-use.
	mu           sync.Mutex
	storage      repository.StateStorage
	handshakeTTL time.Duration
}

// NewStore creates a session store backed by the given storage.
func NewStore(cfg *config.Config, stateStorage repository.StateStorage) service.SessionStore {
	ttl := defaultHandshakeTTL
	if cfg != nil && cfg.Session != nil && cfg.Session.HandshakeTTL > 0 {
		ttl = cfg.Session.HandshakeTTL
	}

	return &Store{
		storage:      stateStorage,
		handshakeTTL: ttl,
	}
}

// SaveTokens overwrites the stored token set wholesale.
func (s *Store) SaveTokens(tokens entity.TokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return errors.Wrap(err, "marshal token set")
	}

	if err := s.storage.Set(keyTokens, data, 0); err != nil {
		return errors.Wrap(err, "store token set")
	}

	return nil
}

// Tokens returns the stored token set by value and whether one is held.
func (s *Store) Tokens() (entity.TokenSet, bool) {
	data, err := s.storage.Get(keyTokens)
	if err != nil {
		return entity.TokenSet{}, false
	}

	var tokens entity.TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return entity.TokenSet{}, false
	}

	return tokens, !tokens.IsZero()
}

// ClearTokens drops the stored token set.
func (s *Store) ClearTokens() error {
	if err := s.storage.Delete(keyTokens); err != nil {
		return errors.Wrap(err, "clear token set")
	}

	return nil
}

// BeginHandshake stores a fresh correlation token bound to action and
// returns it. A new handshake replaces any previous pending one.
func (s *Store) BeginHandshake(action entity.PendingAction) (string, error) {
	if !action.IsValid() {
		return "", domainerrors.ErrValidation.WrapMessage("unknown pending action " + action.String())
	}

	token, err := generateCorrelationToken()
	if err != nil {
		return "", err
	}

	state := handshakeState{
		CorrelationToken: token,
		PendingAction:    action,
		CreatedAt:        time.Now(),
	}

	data, err := json.Marshal(state)
	if err != nil {
		return "", errors.Wrap(err, "marshal handshake state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(keyHandshake, data, s.handshakeTTL); err != nil {
		return "", errors.Wrap(err, "store handshake state")
	}

	return token, nil
}

// ConsumeHandshake deletes the stored handshake, then returns its pending
// action only when returnedState matches the stored correlation token. The
// read, the delete, and the comparison happen in one critical section, so a
// second callback carrying the same state always fails no matter how the
// first one fared.
func (s *Store) ConsumeHandshake(returnedState string) (entity.PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Get(keyHandshake)

	// Delete before comparing anything, even when the read came back empty.
	if delErr := s.storage.Delete(keyHandshake); delErr != nil {
		return "", errors.Wrap(delErr, "discard handshake state")
	}

	if err != nil {
		return "", domainerrors.ErrHandshakeMismatch.WrapMessage("no pending handshake")
	}

	var state handshakeState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", domainerrors.ErrHandshakeMismatch.WrapMessage("unreadable handshake state")
	}

	if returnedState == "" ||
		subtle.ConstantTimeCompare([]byte(returnedState), []byte(state.CorrelationToken)) != 1 {
		return "", domainerrors.ErrHandshakeMismatch.WrapMessage("correlation token mismatch")
	}

	return state.PendingAction, nil
}

// generateCorrelationToken returns a hex-encoded random token.
func generateCorrelationToken() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate correlation token")
	}

	return hex.EncodeToString(buf), nil
}
