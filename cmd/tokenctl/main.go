// Command tokenctl mints a session token from the command line, useful for
// testing gateway deployments and for operators cutting short-lived
// credentials.
//
//	tokenctl -key "$EINLASS_SESSION_KEY" -subject alice -name "Alice" -ttl 15m
//
// The signing key must match the gateway's auth.session.signing_key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/einlass-dev/einlass/pkg/auth"
	"github.com/einlass-dev/einlass/pkg/auth/session"
)

func main() {
	var (
		key      = flag.String("key", os.Getenv("EINLASS_SESSION_KEY"), "session signing key (or EINLASS_SESSION_KEY)")
		subject  = flag.String("subject", "", "token subject (required)")
		name     = flag.String("name", "", "principal display name (defaults to subject)")
		issuer   = flag.String("issuer", "einlass", "token issuer")
		audience = flag.String("audience", "", "token audience")
		ttl      = flag.Duration("ttl", time.Hour, "token lifetime")
		claims   = flag.String("claims", "", "comma-separated type=value claims")
	)
	flag.Parse()

	if err := run(*key, *subject, *name, *issuer, *audience, *ttl, *claims); err != nil {
		fmt.Fprintln(os.Stderr, "tokenctl:", err)
		os.Exit(1)
	}
}

func run(key, subject, name, issuer, audience string, ttl time.Duration, claims string) error {
	if subject == "" {
		return fmt.Errorf("-subject is required")
	}
	if name == "" {
		name = subject
	}

	iss, err := session.NewIssuer(session.Config{
		SigningKey: []byte(key),
		Issuer:     issuer,
		Audience:   audience,
		TTL:        ttl,
	})
	if err != nil {
		return err
	}

	p := &auth.Principal{
		IsAuthenticated: true,
		Name:            name,
		Claims:          []auth.Claim{{Type: "sub", Value: subject}},
	}
	for _, pair := range strings.Split(claims, ",") {
		if pair == "" {
			continue
		}
		ct, cv, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid claim %q, want type=value", pair)
		}
		p.Claims = append(p.Claims, auth.Claim{Type: ct, Value: cv})
	}

	artifact, err := iss.Issue(context.Background(), p)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
