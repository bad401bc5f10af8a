package auth

import (
	"context"
	"sync"
)

// State is the per-request bag of ambient authentication state: the current
// principal and the redirect-suppression marker. It is shared by pointer
// between the interceptor, downstream handlers, and the response
// post-processing step, so a write from any of them is visible to the rest.
//
// A State belongs to exactly one request and is discarded when the request
// completes. The mutex exists for handlers that consult the marker from
// helper goroutines, not for cross-request sharing.
type State struct {
	mu        sync.Mutex
	principal *Principal
	redirect  RedirectMode
}

// NewState returns an empty request state with an anonymous principal
// and the redirect marker unset. Hosts that manage their own request
// context can install one with ContextWithState before the interceptor
// runs; otherwise the interceptor creates one per request.
func NewState() *State {
	return &State{principal: Anonymous()}
}

// Principal returns the current principal. Never nil.
func (s *State) Principal() *Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return Anonymous()
	}
	return s.principal
}

// SetPrincipal replaces the current principal.
func (s *State) SetPrincipal(p *Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = p
}

// RedirectMode returns the current redirect marker value.
func (s *State) RedirectMode() RedirectMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

// setRedirectMode force-sets the marker, overriding any prior value.
func (s *State) setRedirectMode(m RedirectMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = m
}

// setRedirectModeIfUnset writes the marker only when it is currently unset,
// preserving any explicit choice made earlier in the same request.
func (s *State) setRedirectModeIfUnset(m RedirectMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redirect == RedirectUnset {
		s.redirect = m
	}
}

// stateKey is a private type for the state context key.
type stateKey struct{}

// ContextWithState installs a request state into the context.
func ContextWithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFromContext retrieves the request state, or nil if none is installed.
func StateFromContext(ctx context.Context) *State {
	if s, ok := ctx.Value(stateKey{}).(*State); ok {
		return s
	}
	return nil
}

// PrincipalFromContext returns the principal for the current request.
// Returns the anonymous principal if no request state is installed.
func PrincipalFromContext(ctx context.Context) *Principal {
	if s := StateFromContext(ctx); s != nil {
		return s.Principal()
	}
	return Anonymous()
}
