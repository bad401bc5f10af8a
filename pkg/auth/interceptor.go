package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/einlass-dev/einlass/pkg/observability"
)

const internalErrorBody = `{"error":{"type":"server_error","message":"internal authentication error"}}`

// Interceptor creates HTTP middleware from an Engine and optional
// RateLimiter. It authenticates every request before the next handler runs,
// short-circuits rejected and token-exchange requests, propagates the
// principal through the request context, and post-processes unauthorized
// responses with the configured challenge semantics.
//
// Authentication is attempted exactly once per request; there is no retry.
func Interceptor(cfg Config, engine Engine, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}
	responder := NewResponder(cfg, engine)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ctx := r.Context()

			// Reuse a host-installed request state, or fall back to a
			// fresh per-request one.
			state := StateFromContext(ctx)
			if state == nil {
				state = NewState()
				ctx = ContextWithState(ctx, state)
			}

			// Defensive reset: absent explicit authentication, no stale
			// identity leaks into downstream handlers.
			if !cfg.InheritHostIdentity {
				state.SetPrincipal(Anonymous())
			}

			result := engine.Authenticate(ctx, r)

			switch result.Status {
			case StatusRejected:
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.AuthRequestsTotal.WithLabelValues("rejected").Inc()
				observability.AuthDuration.Observe(time.Since(start).Seconds())
				responder.Unauthorized(ctx, w)
				return

			case StatusAuthenticated, StatusTokenRequest:
				// An engine that classifies a request as authenticated must
				// produce a usable principal. Anything else is an engine
				// bug, not a client-caused condition.
				if !result.Principal.Valid() || !result.Principal.IsAuthenticated {
					slog.Error("engine returned no usable principal",
						"path", r.URL.Path,
						"status", int(result.Status),
					)
					observability.AuthRequestsTotal.WithLabelValues("error").Inc()
					http.Error(w, internalErrorBody, http.StatusInternalServerError)
					return
				}
			}

			if result.Status == StatusTokenRequest {
				if err := responder.SessionToken(ctx, w, result.Principal); err != nil {
					slog.Error("session token issuance failed",
						"principal", result.Principal.Name,
						"error", err,
					)
					observability.AuthRequestsTotal.WithLabelValues("error").Inc()
					http.Error(w, internalErrorBody, http.StatusInternalServerError)
					return
				}
				slog.Debug("session token issued", "principal", result.Principal.Name)
				observability.AuthRequestsTotal.WithLabelValues("token_issued").Inc()
				observability.TokensIssuedTotal.Inc()
				observability.AuthDuration.Observe(time.Since(start).Seconds())
				return
			}

			outcome := "anonymous"
			if result.Status == StatusAuthenticated {
				outcome = "authenticated"
				state.SetPrincipal(result.Principal)

				slog.Debug("authentication succeeded",
					"principal", result.Principal.Name,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)

				// Rate limiting (if configured).
				if limiter != nil {
					if err := limiter.Allow(ctx, result.Principal); err != nil {
						tier := result.Principal.Claim(ClaimTier)
						slog.Warn("rate limit exceeded",
							"principal", result.Principal.Name,
							"tier", tier,
						)
						observability.RateLimitRejectedTotal.WithLabelValues(tier).Inc()
						http.Error(w, `{"error":{"type":"too_many_requests","message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
						return
					}
				}
			}
			observability.AuthRequestsTotal.WithLabelValues(outcome).Inc()
			observability.AuthDuration.Observe(time.Since(start).Seconds())

			// Invoke the next stage with a writer that injects challenge
			// semantics the moment a 401 becomes final.
			cw := &challengeWriter{ResponseWriter: w, cfg: cfg, state: state}
			next.ServeHTTP(cw, r.WithContext(ctx))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// challengeWriter wraps http.ResponseWriter to post-process unauthorized
// responses. Headers can only be modified before they flush, so the
// challenge header is injected inside WriteHeader, at the point the
// downstream response becomes final.
type challengeWriter struct {
	http.ResponseWriter
	cfg     Config
	state   *State
	written bool
}

// WriteHeader injects the challenge header and sets the redirect marker
// when the final status is 401, then delegates.
func (w *challengeWriter) WriteHeader(status int) {
	if !w.written {
		w.written = true
		if status == http.StatusUnauthorized {
			if w.cfg.SendChallengeHeader && w.cfg.DefaultScheme != "" {
				if w.Header().Get("WWW-Authenticate") == "" {
					w.Header().Set("WWW-Authenticate", w.cfg.DefaultScheme)
					observability.ChallengesTotal.WithLabelValues(w.cfg.DefaultScheme).Inc()
				}
			}
			if w.cfg.SetRedirectMarker {
				// First-write-wins: an explicit SuppressRedirect or
				// AllowRedirect made by the handler stays in effect.
				w.state.setRedirectModeIfUnset(RedirectSuppress)
			}
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write marks the response as finalized with an implicit 200.
func (w *challengeWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *challengeWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling
// http.ResponseController and similar utilities to access the original writer.
func (w *challengeWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
