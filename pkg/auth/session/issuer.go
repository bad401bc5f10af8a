package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/einlass-dev/einlass/pkg/auth"
)

// Issuer mints session tokens for authenticated principals.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// Ensure Issuer satisfies the engine's issuance contract at compile time.
var _ auth.TokenIssuer = (*Issuer)(nil)

// NewIssuer creates an Issuer with the given configuration.
func NewIssuer(cfg Config) (*Issuer, error) {
	cfg.applyDefaults()
	if len(cfg.SigningKey) < 32 {
		return nil, errors.New("session signing key must be at least 32 bytes")
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue mints a renewable HS256 session token for the principal.
func (i *Issuer) Issue(_ context.Context, p *auth.Principal) (*auth.TokenArtifact, error) {
	if !p.Valid() || !p.IsAuthenticated {
		return nil, errors.New("cannot issue token for unauthenticated principal")
	}

	now := i.now()
	expiresAt := now.Add(i.cfg.TTL)
	renewAfter := now.Add(i.cfg.RenewAfter)

	claims := jwtlib.MapClaims{
		"iss":           i.cfg.Issuer,
		"sub":           principalSubject(p),
		"iat":           now.Unix(),
		"exp":           expiresAt.Unix(),
		ClaimName:       p.Name,
		ClaimSet:        p.Claims,
		ClaimRenewAfter: renewAfter.Unix(),
	}
	if i.cfg.Audience != "" {
		claims["aud"] = i.cfg.Audience
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("signing session token: %w", err)
	}

	return &auth.TokenArtifact{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		RenewAfter:  renewAfter,
	}, nil
}
