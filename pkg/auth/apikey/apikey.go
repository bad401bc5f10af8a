// Package apikey provides an API-key credential validator backed by a
// storage.KeyStore. Presented keys are hashed with SHA-256 before lookup,
// so neither the store nor the validator ever holds plaintext keys.
package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/einlass-dev/einlass/pkg/auth"
	"github.com/einlass-dev/einlass/pkg/storage"
)

// Header is the dedicated API-key request header.
const Header = "X-API-Key"

// Validator validates API keys against a key store.
type Validator struct {
	store storage.KeyStore
}

// New creates an API-key validator backed by the given store.
func New(store storage.KeyStore) *Validator {
	return &Validator{store: store}
}

// HashKey returns the hex-encoded SHA-256 hash of a plaintext key, the
// form under which keys are stored.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Validate extracts an API key from the X-API-Key header or a bearer
// Authorization header and resolves it through the store.
//
// Decision outcomes:
//   - Abstain: no API key and no bearer credential present
//   - No: key present but unknown, revoked, or unresolvable
//   - Yes: known key with the stored identity as an authenticated principal
func (v *Validator) Validate(ctx context.Context, r *http.Request) auth.Vote {
	key := r.Header.Get(Header)
	if key == "" {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return auth.Vote{Decision: auth.Abstain}
		}
		key = strings.TrimPrefix(header, "Bearer ")
	}
	if key == "" {
		return auth.Vote{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	rec, err := v.store.LookupKey(ctx, HashKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrRevoked) {
			return auth.Vote{Decision: auth.No, Err: auth.ErrUnauthenticated}
		}
		return auth.Vote{Decision: auth.No, Err: fmt.Errorf("resolving API key: %w", err)}
	}

	return auth.Vote{Decision: auth.Yes, Principal: principalFromRecord(rec)}
}

// principalFromRecord turns a key record into an authenticated principal,
// preserving claim order and appending the tier claim when present.
func principalFromRecord(rec *storage.KeyRecord) *auth.Principal {
	name := rec.DisplayName
	if name == "" {
		name = rec.Subject
	}

	p := &auth.Principal{
		IsAuthenticated: true,
		Name:            name,
		Claims:          []auth.Claim{{Type: "sub", Value: rec.Subject}},
	}
	for _, c := range rec.Claims {
		p.Claims = append(p.Claims, auth.Claim{Type: c.Type, Value: c.Value})
	}
	if rec.Tier != "" {
		p.Claims = append(p.Claims, auth.Claim{Type: auth.ClaimTier, Value: rec.Tier})
	}
	return p
}
