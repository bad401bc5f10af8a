package storage

import "context"

// Claim is a typed assertion attached to a key record. Order is preserved
// when the record is turned into a principal.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// KeyRecord describes the identity behind an API key.
type KeyRecord struct {
	// Subject is the unique identifier of the key owner.
	Subject string

	// DisplayName is the human-readable principal name. Falls back to
	// Subject when empty.
	DisplayName string

	// Tier is the service tier used for rate limiting.
	Tier string

	// Claims are attached to the principal on successful validation.
	Claims []Claim
}

// KeyStore resolves API-key hashes to key records.
type KeyStore interface {
	// LookupKey returns the record for the given hex-encoded SHA-256 key
	// hash. Returns ErrNotFound for unknown hashes and ErrRevoked for
	// revoked keys.
	LookupKey(ctx context.Context, keyHash string) (*KeyRecord, error)

	// Close releases store resources.
	Close()
}
