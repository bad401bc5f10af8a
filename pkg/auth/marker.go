package auth

import "context"

// RedirectMode is the per-request redirect-suppression marker. Browser
// front ends that normally turn a 401 into a login-page redirect check it
// to decide whether to return the status code verbatim instead.
type RedirectMode int

const (
	// RedirectUnset means no opinion has been recorded for this request.
	RedirectUnset RedirectMode = iota

	// RedirectSuppress means the 401 must be returned verbatim, without
	// redirecting to a login page.
	RedirectSuppress

	// RedirectAllow means the classic redirect-to-login flow may proceed.
	RedirectAllow
)

// String returns the marker value as a label.
func (m RedirectMode) String() string {
	switch m {
	case RedirectSuppress:
		return "suppress"
	case RedirectAllow:
		return "allow"
	default:
		return "unset"
	}
}

// SuppressRedirect force-sets the marker to suppress for the current
// request, overriding any prior value, including one written by the
// pipeline's automatic post-processing. No-op if the context carries no
// request state.
func SuppressRedirect(ctx context.Context) {
	if s := StateFromContext(ctx); s != nil {
		s.setRedirectMode(RedirectSuppress)
	}
}

// AllowRedirect force-sets the marker to allow, overriding any prior value.
// No-op if the context carries no request state.
func AllowRedirect(ctx context.Context) {
	if s := StateFromContext(ctx); s != nil {
		s.setRedirectMode(RedirectAllow)
	}
}

// RedirectMarker reads the current marker without side effects. Returns
// RedirectUnset if the context carries no request state.
func RedirectMarker(ctx context.Context) RedirectMode {
	if s := StateFromContext(ctx); s != nil {
		return s.RedirectMode()
	}
	return RedirectUnset
}
