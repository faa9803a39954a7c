// Package storage provides process-local implementations of the domain's
// storage-boundary interfaces.
package storage

import (
	"sync"
	"time"

	"lens/internal/domain/repository"
)

// MemoryStorage is an in-memory scoped key/value store with per-key TTL. It
// stands in for a browsing context's tab-scoped storage: values are
// namespaced, reachable only through the interface, and gone when the
// process exits.
type MemoryStorage struct {
	mu        sync.RWMutex
	namespace string
	values    map[string]storedValue
	now       func() time.Time
}

type storedValue struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStorage creates an empty storage. The namespace prefixes every
// key, mirroring how the browser storage this stands in for scopes its keys.
func NewMemoryStorage(namespace string) *MemoryStorage {
	return &MemoryStorage{
		namespace: namespace,
		values:    make(map[string]storedValue),
		now:       time.Now,
	}
}

// Set stores value under key, replacing any previous value. A zero ttl means
// the value does not expire.
func (s *MemoryStorage) Set(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := storedValue{data: append([]byte(nil), value...)}
	if ttl > 0 {
		stored.expiresAt = s.now().Add(ttl)
	}
	s.values[s.scoped(key)] = stored

	return nil
}

// Get returns the value stored under key, or repository.ErrKeyNotFound when
// the key is absent or expired.
func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	stored, ok := s.values[s.scoped(key)]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrKeyNotFound
	}

	if !stored.expiresAt.IsZero() && !stored.expiresAt.After(s.now()) {
		// Expired entries are dropped lazily on the read that finds them.
		s.mu.Lock()
		delete(s.values, s.scoped(key))
		s.mu.Unlock()

		return nil, repository.ErrKeyNotFound
	}

	return append([]byte(nil), stored.data...), nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, s.scoped(key))

	return nil
}

func (s *MemoryStorage) scoped(key string) string {
	if s.namespace == "" {
		return key
	}

	return s.namespace + ":" + key
}
