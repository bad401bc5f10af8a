package auth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Decision represents the three possible outcomes of credential validation.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the principal is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this validator cannot handle the credentials type.
	// The chain continues to the next validator.
	Abstain
)

// Vote carries the outcome of a single validator.
type Vote struct {
	Decision  Decision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Validator examines request credentials and returns a three-outcome vote.
type Validator interface {
	Validate(ctx context.Context, r *http.Request) Vote
}

// Claim is a single typed assertion about a principal. Claims preserve
// the order in which the credential carried them.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Principal is the identity associated with a request, authenticated or not.
type Principal struct {
	// IsAuthenticated reports whether a credential was validated.
	IsAuthenticated bool

	// Name is the display name of the principal. May be empty for
	// authenticated principals that carry claims instead.
	Name string

	// Claims lists the assertions established during authentication,
	// in credential order.
	Claims []Claim
}

// Anonymous returns the principal used when no credential is present.
func Anonymous() *Principal {
	return &Principal{}
}

// Valid reports whether the principal satisfies the identity invariant:
// an authenticated principal must carry a non-empty name or at least
// one claim.
func (p *Principal) Valid() bool {
	if p == nil {
		return false
	}
	if !p.IsAuthenticated {
		return true
	}
	return p.Name != "" || len(p.Claims) > 0
}

// Claim returns the value of the first claim with the given type, or
// empty string if the principal carries no such claim.
func (p *Principal) Claim(claimType string) string {
	if p == nil {
		return ""
	}
	for _, c := range p.Claims {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// Status classifies the result of an authentication attempt. The
// interceptor branches on this closed set instead of catching error types.
type Status int

const (
	// StatusAnonymous means no credential was presented. The request
	// proceeds with the anonymous (or host-inherited) principal.
	StatusAnonymous Status = iota

	// StatusAuthenticated means a credential validated and produced a
	// principal. The request proceeds with that principal.
	StatusAuthenticated

	// StatusTokenRequest means a credential validated and the request is
	// asking to exchange it for a session token. The pipeline short-circuits
	// with a token response; the next handler is never invoked.
	StatusTokenRequest

	// StatusRejected means a credential was presented but failed
	// validation. The pipeline short-circuits with an unauthorized
	// response; the next handler is never invoked.
	StatusRejected
)

// Result carries the outcome of Engine.Authenticate.
type Result struct {
	Status    Status
	Principal *Principal // required for StatusAuthenticated and StatusTokenRequest
	Err       error      // populated only for StatusRejected
}

// TokenArtifact is a renewable session token minted in exchange for a
// validated credential. It serializes as the JSON body of a token response.
type TokenArtifact struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	RenewAfter  time.Time `json:"renew_after"`
}

// Engine authenticates requests and mints session tokens. The interceptor
// consumes this interface; ChainEngine is the stock implementation.
type Engine interface {
	// Authenticate validates the request's credential and classifies the
	// attempt. It must return a principal for StatusAuthenticated and
	// StatusTokenRequest; a nil principal there is a contract violation
	// that the interceptor surfaces as an internal error.
	Authenticate(ctx context.Context, r *http.Request) Result

	// IssueToken mints a session token for the given principal.
	IssueToken(ctx context.Context, p *Principal) (*TokenArtifact, error)
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)
