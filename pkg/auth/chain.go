package auth

import (
	"context"
	"errors"
	"net/http"
)

// DefaultTokenEndpoint is the path where credentials are exchanged for
// session tokens.
const DefaultTokenEndpoint = "/auth/token"

// TokenIssuer mints session tokens. Implemented by session.Issuer.
type TokenIssuer interface {
	Issue(ctx context.Context, p *Principal) (*TokenArtifact, error)
}

// ChainEngine is the stock Engine: it evaluates validators in order using
// three-outcome voting and classifies token-exchange requests.
type ChainEngine struct {
	// Validators are evaluated left to right. The first Yes or No wins.
	Validators []Validator

	// Issuer mints session tokens for token-exchange requests. A nil
	// Issuer makes every token exchange fail with an issuance error.
	Issuer TokenIssuer

	// TokenEndpoint is the path that classifies a POST as a token-exchange
	// request. Empty means DefaultTokenEndpoint.
	TokenEndpoint string
}

// Authenticate runs the validator chain and folds the vote into a Result.
//
//   - a Yes vote yields StatusAuthenticated, or StatusTokenRequest when the
//     request is a POST to the token endpoint
//   - a No vote yields StatusRejected
//   - all-abstain yields StatusAnonymous, except on the token endpoint,
//     where exchanging nothing for a token is rejected
func (e *ChainEngine) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, v := range e.Validators {
		vote := v.Validate(ctx, r)
		switch vote.Decision {
		case Yes:
			if e.isTokenRequest(r) {
				return Result{Status: StatusTokenRequest, Principal: vote.Principal}
			}
			return Result{Status: StatusAuthenticated, Principal: vote.Principal}
		case No:
			err := vote.Err
			if err == nil {
				err = ErrUnauthenticated
			}
			return Result{Status: StatusRejected, Err: err}
		}
	}

	if e.isTokenRequest(r) {
		return Result{Status: StatusRejected, Err: ErrUnauthenticated}
	}
	return Result{Status: StatusAnonymous}
}

// IssueToken mints a session token via the configured issuer.
func (e *ChainEngine) IssueToken(ctx context.Context, p *Principal) (*TokenArtifact, error) {
	if e.Issuer == nil {
		return nil, errors.New("no token issuer configured")
	}
	return e.Issuer.Issue(ctx, p)
}

func (e *ChainEngine) isTokenRequest(r *http.Request) bool {
	endpoint := e.TokenEndpoint
	if endpoint == "" {
		endpoint = DefaultTokenEndpoint
	}
	return r.Method == http.MethodPost && r.URL.Path == endpoint
}
