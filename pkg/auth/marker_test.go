package auth

import (
	"context"
	"testing"
)

func TestRedirectMarker_NoState(t *testing.T) {
	ctx := context.Background()

	// Reads surface "no opinion" and writes are no-ops without a state.
	if got := RedirectMarker(ctx); got != RedirectUnset {
		t.Errorf("marker = %v, want RedirectUnset", got)
	}
	SuppressRedirect(ctx)
	AllowRedirect(ctx)
	if got := RedirectMarker(ctx); got != RedirectUnset {
		t.Errorf("marker after writes = %v, want RedirectUnset", got)
	}
}

func TestRedirectMarker_OverrideWins(t *testing.T) {
	ctx := ContextWithState(context.Background(), NewState())

	SuppressRedirect(ctx)
	if got := RedirectMarker(ctx); got != RedirectSuppress {
		t.Fatalf("marker = %v, want RedirectSuppress", got)
	}

	// The override API always overwrites, in both directions.
	AllowRedirect(ctx)
	if got := RedirectMarker(ctx); got != RedirectAllow {
		t.Fatalf("marker = %v, want RedirectAllow", got)
	}
	SuppressRedirect(ctx)
	if got := RedirectMarker(ctx); got != RedirectSuppress {
		t.Fatalf("marker = %v, want RedirectSuppress", got)
	}
}

func TestRedirectMarker_FirstWriteWins(t *testing.T) {
	state := NewState()

	// Automatic setter writes when unset.
	state.setRedirectModeIfUnset(RedirectSuppress)
	if got := state.RedirectMode(); got != RedirectSuppress {
		t.Fatalf("marker = %v, want RedirectSuppress", got)
	}

	// And leaves any existing value alone.
	state.setRedirectModeIfUnset(RedirectAllow)
	if got := state.RedirectMode(); got != RedirectSuppress {
		t.Errorf("marker = %v, want RedirectSuppress (first write wins)", got)
	}
}

func TestRedirectMarker_ExplicitChoiceSurvivesAutomaticWrite(t *testing.T) {
	ctx := ContextWithState(context.Background(), NewState())

	// A handler's explicit choice must survive the pipeline's automatic
	// non-overriding write.
	SuppressRedirect(ctx)
	AllowRedirect(ctx)
	StateFromContext(ctx).setRedirectModeIfUnset(RedirectSuppress)

	if got := RedirectMarker(ctx); got != RedirectAllow {
		t.Errorf("marker = %v, want RedirectAllow", got)
	}
}

func TestRedirectMode_String(t *testing.T) {
	tests := []struct {
		mode RedirectMode
		want string
	}{
		{RedirectUnset, "unset"},
		{RedirectSuppress, "suppress"},
		{RedirectAllow, "allow"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestState_PrincipalDefaultsToAnonymous(t *testing.T) {
	var s State
	p := s.Principal()
	if p == nil || p.IsAuthenticated {
		t.Errorf("principal = %+v, want anonymous", p)
	}

	if got := PrincipalFromContext(context.Background()); got.IsAuthenticated {
		t.Errorf("principal without state = %+v, want anonymous", got)
	}
}
