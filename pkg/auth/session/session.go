// Package session mints and validates the renewable session tokens that
// einlass issues in exchange for a validated credential. Tokens are
// HS256-signed JWTs carrying the principal's name and claims, plus a
// renew-after hint so clients can refresh before expiry.
package session

import (
	"time"

	"github.com/einlass-dev/einlass/pkg/auth"
)

// ClaimName is the JWT claim carrying the principal display name.
const ClaimName = "name"

// ClaimSet is the JWT claim carrying the principal's ordered claim list.
const ClaimSet = "einlass_claims"

// ClaimRenewAfter is the JWT claim carrying the renewal hint (unix seconds).
const ClaimRenewAfter = "renew_after"

// Config holds the shared settings of the issuer and the validator.
type Config struct {
	// SigningKey is the HMAC secret used to sign and verify tokens.
	// Required, minimum 32 bytes.
	SigningKey []byte

	// Issuer is the iss claim. Default: "einlass".
	Issuer string

	// Audience is the aud claim. If empty, audience is not set or validated.
	Audience string

	// TTL is the token lifetime. Default: 1 hour.
	TTL time.Duration

	// RenewAfter is the age at which clients should exchange for a fresh
	// token. Default: half the TTL.
	RenewAfter time.Duration
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "einlass"
	}
	if c.TTL == 0 {
		c.TTL = 1 * time.Hour
	}
	if c.RenewAfter == 0 {
		c.RenewAfter = c.TTL / 2
	}
}

// principalSubject returns the stable subject for a principal: the "sub"
// claim when present, the name otherwise.
func principalSubject(p *auth.Principal) string {
	if sub := p.Claim("sub"); sub != "" {
		return sub
	}
	return p.Name
}
