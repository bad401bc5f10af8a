package storage

import "errors"

// Sentinel errors for key store operations.
var (
	// ErrNotFound is returned when no key with the given hash exists.
	ErrNotFound = errors.New("key not found")

	// ErrRevoked is returned when the key exists but has been revoked.
	ErrRevoked = errors.New("key revoked")
)
