package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/einlass-dev/einlass/pkg/observability"
)

// Config holds the interception options. Loaded once at startup and
// read-only afterwards; safe for concurrent use across requests.
type Config struct {
	// InheritHostIdentity skips the defensive anonymous reset when the
	// host has already authenticated the transport connection and
	// installed a principal in the request state.
	InheritHostIdentity bool

	// SendChallengeHeader attaches WWW-Authenticate to unauthorized
	// responses.
	SendChallengeHeader bool

	// DefaultScheme is the authentication scheme advertised in the
	// challenge header (for example "Bearer").
	DefaultScheme string

	// SetRedirectMarker makes unauthorized responses set the
	// redirect-suppression marker (first-write-wins) so programmatic
	// clients see the bare 401 instead of a login redirect.
	SetRedirectMarker bool
}

const unauthorizedBody = `{"error":{"type":"invalid_request","message":"authentication required"}}`

// Responder builds the two terminal short-circuit responses of the
// pipeline: the immediate unauthorized response and the immediate
// session-token response.
type Responder struct {
	cfg    Config
	engine Engine
}

// NewResponder creates a Responder bound to the given configuration and
// token issuance engine.
func NewResponder(cfg Config, engine Engine) *Responder {
	return &Responder{cfg: cfg, engine: engine}
}

// Unauthorized writes a 401 response with the challenge header and the
// redirect-suppression marker applied per configuration. The marker write
// is non-overriding: an explicit choice made earlier in the request wins.
func (rp *Responder) Unauthorized(ctx context.Context, w http.ResponseWriter) {
	if rp.cfg.SendChallengeHeader && rp.cfg.DefaultScheme != "" {
		w.Header().Set("WWW-Authenticate", rp.cfg.DefaultScheme)
		observability.ChallengesTotal.WithLabelValues(rp.cfg.DefaultScheme).Inc()
	}
	if rp.cfg.SetRedirectMarker {
		if s := StateFromContext(ctx); s != nil {
			s.setRedirectModeIfUnset(RedirectSuppress)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintln(w, unauthorizedBody)
}

// SessionToken mints a session token for the principal and writes it as a
// JSON response with status 200. An issuance failure is returned to the
// caller before anything is written; it is never downgraded to a 401.
func (rp *Responder) SessionToken(ctx context.Context, w http.ResponseWriter, p *Principal) error {
	artifact, err := rp.engine.IssueToken(ctx, p)
	if err != nil {
		return fmt.Errorf("issuing session token: %w", err)
	}

	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encoding token response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}
