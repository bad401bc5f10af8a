// Package storage defines the API-key store consumed by the apikey
// credential validator. Keys are stored as SHA-256 hashes; plaintext keys
// never reach the store. Implementations live in the memory and postgres
// subpackages.
package storage
