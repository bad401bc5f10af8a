// Package config provides unified configuration for the einlass gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (EINLASS_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the einlass gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// UpstreamConfig holds the proxied application settings.
type UpstreamConfig struct {
	URL string `yaml:"url"` // required
}

// AuthConfig holds the interception settings.
type AuthConfig struct {
	// InheritHostIdentity skips the per-request anonymous reset when the
	// host established an identity on the connection.
	InheritHostIdentity bool `yaml:"inherit_host_identity"` // default: false

	// SendChallengeHeader attaches WWW-Authenticate to 401 responses.
	SendChallengeHeader bool `yaml:"send_challenge_header"` // default: true

	// DefaultScheme is the scheme advertised in the challenge header.
	DefaultScheme string `yaml:"default_scheme"` // default: "Bearer"

	// SetRedirectMarker makes 401 responses set the redirect-suppression
	// marker for browser front ends.
	SetRedirectMarker bool `yaml:"set_redirect_marker"` // default: true

	// TokenEndpoint is the path where credentials are exchanged for
	// session tokens.
	TokenEndpoint string `yaml:"token_endpoint"` // default: "/auth/token"

	Session   SessionConfig   `yaml:"session"`
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	SigningKey     string        `yaml:"signing_key"`
	SigningKeyFile string        `yaml:"signing_key_file"` // _file variant for signing_key
	Issuer         string        `yaml:"issuer"`           // default: "einlass"
	Audience       string        `yaml:"audience"`         // optional
	TTL            time.Duration `yaml:"ttl"`              // default: 1h
	RenewAfter     time.Duration `yaml:"renew_after"`      // default: ttl/2
}

// APIKeyConfig describes a single API key entry for the memory key store.
type APIKeyConfig struct {
	Key         string        `yaml:"key"`
	KeyFile     string        `yaml:"key_file"` // _file variant for key
	Subject     string        `yaml:"subject"`
	DisplayName string        `yaml:"display_name"`
	Tier        string        `yaml:"tier"`
	Claims      []ClaimConfig `yaml:"claims"`
}

// ClaimConfig is a typed claim attached to an API key identity.
type ClaimConfig struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// RateLimitConfig holds per-tier rate limit settings. A zero DefaultRPM
// disables limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"` // tier -> requests per minute
}

// StorageConfig holds key store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Auth: AuthConfig{
			SendChallengeHeader: true,
			DefaultScheme:       "Bearer",
			SetRedirectMarker:   true,
			TokenEndpoint:       "/auth/token",
			Session: SessionConfig{
				Issuer: "einlass",
				TTL:    1 * time.Hour,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
