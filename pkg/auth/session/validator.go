package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/einlass-dev/einlass/pkg/auth"
)

// Validator validates einlass-minted session tokens presented as bearer
// credentials and reconstructs the principal they were issued for.
type Validator struct {
	cfg Config
}

// NewValidator creates a Validator sharing the issuer's configuration.
func NewValidator(cfg Config) *Validator {
	cfg.applyDefaults()
	return &Validator{cfg: cfg}
}

// Validate extracts a bearer token from the Authorization header and
// verifies it as a session JWT.
//
// Decision outcomes:
//   - Abstain: no Authorization header, not a Bearer scheme, or the
//     credential is not JWT-shaped (API keys fall through to the next
//     validator in the chain)
//   - No: JWT-shaped token present but invalid (expired, tampered, wrong
//     issuer or audience)
//   - Yes: valid session token with the reconstructed principal
func (v *Validator) Validate(_ context.Context, r *http.Request) auth.Vote {
	header := r.Header.Get("Authorization")
	if header == "" {
		return auth.Vote{Decision: auth.Abstain}
	}

	// Must be Bearer token.
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.Vote{Decision: auth.Abstain}
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if strings.Count(tokenStr, ".") != 2 {
		// Not a JWT. Leave it for the API-key validator.
		return auth.Vote{Decision: auth.Abstain}
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"HS256"}),
		jwtlib.WithIssuer(v.cfg.Issuer),
		jwtlib.WithExpirationRequired(),
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(v.cfg.Audience))
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		slog.Debug("session token validation failed", "error", err)
		return auth.Vote{
			Decision: auth.No,
			Err:      fmt.Errorf("invalid session token: %w", err),
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return auth.Vote{
			Decision: auth.No,
			Err:      fmt.Errorf("invalid session token claims"),
		}
	}

	p := principalFromClaims(claims)
	if !p.Valid() {
		return auth.Vote{
			Decision: auth.No,
			Err:      fmt.Errorf("session token carries no identity"),
		}
	}

	return auth.Vote{Decision: auth.Yes, Principal: p}
}

// principalFromClaims rebuilds the principal a token was issued for.
func principalFromClaims(claims jwtlib.MapClaims) *auth.Principal {
	p := &auth.Principal{IsAuthenticated: true}

	if name, ok := claims[ClaimName].(string); ok {
		p.Name = name
	}

	// The claim list round-trips through JSON as []interface{} of objects.
	if arr, ok := claims[ClaimSet].([]interface{}); ok {
		for _, item := range arr {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			ct, _ := obj["type"].(string)
			cv, _ := obj["value"].(string)
			if ct != "" {
				p.Claims = append(p.Claims, auth.Claim{Type: ct, Value: cv})
			}
		}
	}

	// Older tokens carry only sub; surface it as a claim so the
	// invariant (name or claim) holds.
	if len(p.Claims) == 0 && p.Name == "" {
		if sub, ok := claims["sub"].(string); ok && sub != "" {
			p.Claims = append(p.Claims, auth.Claim{Type: "sub", Value: sub})
		}
	}

	return p
}
