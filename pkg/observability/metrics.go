// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the einlass gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets suited for authentication
// latencies, ranging from 100µs (in-memory key lookup) to 5s (remote
// credential validation).
var AuthBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "einlass_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "einlass_request_duration_seconds",
			Help: "Request duration",
		},
		[]string{"method"},
	)

	// AuthRequestsTotal counts authentication attempts by outcome
	// (authenticated, anonymous, token_issued, rejected, error).
	AuthRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "einlass_auth_requests_total",
			Help: "Authentication attempts",
		},
		[]string{"outcome"},
	)

	// AuthDuration records the time spent in the authentication step.
	AuthDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "einlass_auth_duration_seconds",
			Help:    "Authentication duration",
			Buckets: AuthBuckets,
		},
	)

	// TokensIssuedTotal counts minted session tokens.
	TokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "einlass_tokens_issued_total",
			Help: "Session tokens issued",
		},
	)

	// ChallengesTotal counts WWW-Authenticate challenges by scheme.
	ChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "einlass_challenges_total",
			Help: "Authentication challenges sent",
		},
		[]string{"scheme"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "einlass_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthRequestsTotal,
		AuthDuration,
		TokensIssuedTotal,
		ChallengesTotal,
		RateLimitRejectedTotal,
	)
}
