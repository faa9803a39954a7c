// Package repository defines the storage-boundary interfaces the domain
// depends on. Implementations live under internal/infra.
package repository

import (
	"time"

	"lens/internal/errors"
)

// ErrKeyNotFound is returned when the requested key holds no live value.
var ErrKeyNotFound = errors.New("state storage: key not found")

// StateStorage is a scoped key/value store for ephemeral session state, the
// process-local stand-in for a browsing context's tab-scoped storage. Values
// never outlive the process.
type StateStorage interface {
	// Set stores value under key, replacing any previous value. A zero ttl
	// means the value does not expire.
	Set(key string, value []byte, ttl time.Duration) error

	// Get returns the value stored under key, or ErrKeyNotFound when the key
	// is absent or expired.
	Get(key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
