package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// upstream.url is required.
	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	}

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// The challenge header needs a scheme to advertise.
	if c.Auth.SendChallengeHeader && c.Auth.DefaultScheme == "" {
		errs = append(errs, fmt.Errorf("auth.default_scheme is required when auth.send_challenge_header is true"))
	}

	// Session tokens need a signing key of useful length.
	if c.Auth.Session.SigningKey == "" && c.Auth.Session.SigningKeyFile == "" {
		errs = append(errs, fmt.Errorf("auth.session.signing_key or auth.session.signing_key_file is required"))
	} else if c.Auth.Session.SigningKey != "" && len(c.Auth.Session.SigningKey) < 32 {
		errs = append(errs, fmt.Errorf("auth.session.signing_key must be at least 32 bytes, got %d", len(c.Auth.Session.SigningKey)))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// Memory storage keys need a subject and a key.
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" && k.KeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].key or key_file is required", i))
		}
		if k.Subject == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
		}
	}

	return errors.Join(errs...)
}
