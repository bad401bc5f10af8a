package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockEngine drives the interceptor with a fixed result.
type mockEngine struct {
	result   Result
	artifact *TokenArtifact
	issueErr error
	calls    int
}

func (m *mockEngine) Authenticate(_ context.Context, _ *http.Request) Result {
	m.calls++
	return m.result
}

func (m *mockEngine) IssueToken(_ context.Context, _ *Principal) (*TokenArtifact, error) {
	return m.artifact, m.issueErr
}

func testConfig() Config {
	return Config{
		SendChallengeHeader: true,
		DefaultScheme:       "Bearer",
		SetRedirectMarker:   true,
	}
}

func TestInterceptor_ValidCredentialInvokesDownstreamOnce(t *testing.T) {
	engine := &mockEngine{result: Result{
		Status:    StatusAuthenticated,
		Principal: authenticatedPrincipal("alice"),
	}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	downstream := 0
	var seen *Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstream++
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if downstream != 1 {
		t.Errorf("downstream invoked %d times, want 1", downstream)
	}
	if engine.calls != 1 {
		t.Errorf("authenticate called %d times, want exactly 1", engine.calls)
	}
	if seen == nil || !seen.IsAuthenticated || seen.Name != "alice" {
		t.Errorf("downstream principal = %+v, want authenticated alice", seen)
	}
}

func TestInterceptor_InvalidCredentialShortCircuits(t *testing.T) {
	engine := &mockEngine{result: Result{
		Status: StatusRejected,
		Err:    errors.New("token expired"),
	}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	downstream := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstream++
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if downstream != 0 {
		t.Errorf("downstream invoked %d times, want 0", downstream)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
	}
}

func TestInterceptor_TokenExchangeShortCircuits(t *testing.T) {
	artifact := &TokenArtifact{
		AccessToken: "signed-token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour).UTC(),
		RenewAfter:  time.Now().Add(30 * time.Minute).UTC(),
	}
	engine := &mockEngine{
		result:   Result{Status: StatusTokenRequest, Principal: authenticatedPrincipal("alice")},
		artifact: artifact,
	}
	mw := Interceptor(testConfig(), engine, nil, nil)

	downstream := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstream++
	}))

	req := httptest.NewRequest("POST", "/auth/token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if downstream != 0 {
		t.Fatalf("downstream invoked %d times, want 0", downstream)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var got TokenArtifact
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding token response: %v", err)
	}
	if got.AccessToken != artifact.AccessToken || got.TokenType != "Bearer" {
		t.Errorf("artifact = %+v, want %+v", got, artifact)
	}
}

func TestInterceptor_TokenIssuanceFailureIsInternalError(t *testing.T) {
	engine := &mockEngine{
		result:   Result{Status: StatusTokenRequest, Principal: authenticatedPrincipal("alice")},
		issueErr: errors.New("signing key unavailable"),
	}
	mw := Interceptor(testConfig(), engine, nil, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("downstream must not run for token requests")
	}))

	req := httptest.NewRequest("POST", "/auth/token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Issuance failure is not a client authentication failure.
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestInterceptor_EngineContractViolation(t *testing.T) {
	tests := []struct {
		name   string
		result Result
	}{
		{"nil principal", Result{Status: StatusAuthenticated}},
		{"invalid principal", Result{Status: StatusAuthenticated, Principal: &Principal{IsAuthenticated: true}}},
		{"unauthenticated principal", Result{Status: StatusAuthenticated, Principal: Anonymous()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{result: tt.result}
			mw := Interceptor(testConfig(), engine, nil, nil)
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("downstream must not run on engine contract violation")
			}))

			req := httptest.NewRequest("GET", "/api/data", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			// An engine bug is an internal error, not a 401.
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
		})
	}
}

func TestInterceptor_AnonymousContinuesDownstream(t *testing.T) {
	engine := &mockEngine{result: Result{Status: StatusAnonymous}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	var seen *Principal
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/public", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.IsAuthenticated {
		t.Errorf("downstream principal = %+v, want anonymous", seen)
	}
}

func TestInterceptor_Downstream401GetsChallenge(t *testing.T) {
	// No credential, downstream answers 401: the final response carries
	// the challenge header and the marker is suppress.
	engine := &mockEngine{result: Result{Status: StatusAnonymous}}
	cfg := Config{
		InheritHostIdentity: false,
		SendChallengeHeader: true,
		DefaultScheme:       "Bearer",
		SetRedirectMarker:   true,
	}
	mw := Interceptor(cfg, engine, nil, nil)

	var marker RedirectMode
	var downstreamCtx context.Context
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downstreamCtx = r.Context()
		w.WriteHeader(http.StatusUnauthorized)
		marker = RedirectMarker(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
	}
	if marker != RedirectSuppress {
		t.Errorf("marker after WriteHeader = %v, want RedirectSuppress", marker)
	}
	// The marker stays visible through the shared state after the
	// downstream returns.
	if got := RedirectMarker(downstreamCtx); got != RedirectSuppress {
		t.Errorf("marker after downstream = %v, want RedirectSuppress", got)
	}
}

func TestInterceptor_ExplicitAllowSurvives401PostProcessing(t *testing.T) {
	engine := &mockEngine{result: Result{Status: StatusAnonymous}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	var marker RedirectMode
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The handler opts into the classic redirect flow before
		// finalizing its 401.
		AllowRedirect(r.Context())
		w.WriteHeader(http.StatusUnauthorized)
		marker = RedirectMarker(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if marker != RedirectAllow {
		t.Errorf("marker = %v, want RedirectAllow (explicit choice wins)", marker)
	}
}

func TestInterceptor_DownstreamChallengeNotOverwritten(t *testing.T) {
	engine := &mockEngine{result: Result{Status: StatusAnonymous}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="app"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="app"` {
		t.Errorf("WWW-Authenticate = %q, downstream value must win", got)
	}
}

func TestInterceptor_Non401PassesThroughUntouched(t *testing.T) {
	engine := &mockEngine{result: Result{Status: StatusAnonymous}}
	mw := Interceptor(testConfig(), engine, nil, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "" {
		t.Errorf("WWW-Authenticate = %q, want none on non-401", got)
	}
}

func TestInterceptor_HostIdentityInheritance(t *testing.T) {
	hostPrincipal := authenticatedPrincipal("host-user")

	tests := []struct {
		name    string
		inherit bool
		want    string // expected downstream principal name
	}{
		{"inherit keeps host identity", true, "host-user"},
		{"no inherit resets to anonymous", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{result: Result{Status: StatusAnonymous}}
			cfg := testConfig()
			cfg.InheritHostIdentity = tt.inherit
			mw := Interceptor(cfg, engine, nil, nil)

			var seen *Principal
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			// The host installed an authenticated state before the
			// interceptor ran.
			state := NewState()
			state.SetPrincipal(hostPrincipal)
			req := httptest.NewRequest("GET", "/api/data", nil)
			req = req.WithContext(ContextWithState(req.Context(), state))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen.Name != tt.want {
				t.Errorf("downstream principal = %q, want %q", seen.Name, tt.want)
			}
		})
	}
}

func TestInterceptor_BypassEndpoint(t *testing.T) {
	engine := &mockEngine{result: Result{Status: StatusRejected, Err: ErrUnauthenticated}}
	mw := Interceptor(testConfig(), engine, nil, []string{"/healthz"})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("bypass endpoint: status = %d, want 200", rec.Code)
	}
	if engine.calls != 0 {
		t.Errorf("authenticate called %d times on bypass, want 0", engine.calls)
	}
}

func TestInterceptor_RateLimitExceeded(t *testing.T) {
	p := authenticatedPrincipal("alice")
	p.Claims = append(p.Claims, Claim{Type: ClaimTier, Value: "limited"})
	engine := &mockEngine{result: Result{Status: StatusAuthenticated, Principal: p}}

	limiter := NewInProcessLimiter(map[string]TierConfig{
		"limited": {RequestsPerMinute: 2},
	}, 100)

	mw := Interceptor(testConfig(), engine, limiter, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 2 requests should pass.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/data", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	// 3rd should be rate limited.
	req := httptest.NewRequest("GET", "/api/data", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("rate limited request: status = %d, want 429", rec.Code)
	}
}

var _ Engine = (*mockEngine)(nil)
