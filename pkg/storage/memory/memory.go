// Package memory provides an in-memory implementation of storage.KeyStore
// for testing and lightweight deployments. Records are seeded at
// construction time and lost when the process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/einlass-dev/einlass/pkg/storage"
)

// entry holds a key record and its revocation state.
type entry struct {
	record  storage.KeyRecord
	revoked bool
}

// Store is an in-memory KeyStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Ensure Store implements storage.KeyStore at compile time.
var _ storage.KeyStore = (*Store)(nil)

// New creates an empty in-memory key store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Put inserts or replaces the record for the given hex-encoded key hash.
func (s *Store) Put(keyHash string, record storage.KeyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[keyHash] = &entry{record: record}
}

// Revoke marks the key with the given hash as revoked. Lookups keep
// failing with ErrRevoked rather than ErrNotFound, so callers can
// distinguish a withdrawn credential from an unknown one.
func (s *Store) Revoke(keyHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[keyHash]; ok {
		e.revoked = true
	}
}

// LookupKey returns the record for the given key hash.
func (s *Store) LookupKey(_ context.Context, keyHash string) (*storage.KeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[keyHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.revoked {
		return nil, storage.ErrRevoked
	}

	// Copy to avoid shared state.
	rec := e.record
	return &rec, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() {}
