// Command server runs the einlass authenticating reverse proxy.
//
// Every request is authenticated before it is forwarded to the upstream
// application. Credentials are API keys (resolved through the configured
// key store) or einlass-minted session tokens; a POST to the token
// endpoint exchanges a valid credential for a renewable session token.
//
// Configuration is loaded from a YAML file (-config flag, EINLASS_CONFIG
// env var, ./config.yaml, /etc/einlass/config.yaml) with EINLASS_* env
// overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/einlass-dev/einlass/pkg/auth"
	"github.com/einlass-dev/einlass/pkg/auth/apikey"
	"github.com/einlass-dev/einlass/pkg/auth/session"
	"github.com/einlass-dev/einlass/pkg/config"
	"github.com/einlass-dev/einlass/pkg/observability"
	"github.com/einlass-dev/einlass/pkg/storage"
	"github.com/einlass-dev/einlass/pkg/storage/memory"
	"github.com/einlass-dev/einlass/pkg/storage/postgres"
	"github.com/einlass-dev/einlass/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create key store.
	store, err := newKeyStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Create session token issuer and validator.
	sessionCfg := session.Config{
		SigningKey: []byte(cfg.Auth.Session.SigningKey),
		Issuer:     cfg.Auth.Session.Issuer,
		Audience:   cfg.Auth.Session.Audience,
		TTL:        cfg.Auth.Session.TTL,
		RenewAfter: cfg.Auth.Session.RenewAfter,
	}
	issuer, err := session.NewIssuer(sessionCfg)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}

	// Session tokens first: the session validator abstains on anything
	// that is not JWT-shaped, letting API keys fall through.
	engine := &auth.ChainEngine{
		Validators: []auth.Validator{
			session.NewValidator(sessionCfg),
			apikey.New(store),
		},
		Issuer:        issuer,
		TokenEndpoint: cfg.Auth.TokenEndpoint,
	}

	// Optional rate limiting.
	var limiter auth.RateLimiter
	if cfg.Auth.RateLimit.DefaultRPM > 0 {
		tiers := make(map[string]auth.TierConfig, len(cfg.Auth.RateLimit.Tiers))
		for tier, rpm := range cfg.Auth.RateLimit.Tiers {
			tiers[tier] = auth.TierConfig{RequestsPerMinute: rpm}
		}
		limiter = auth.NewInProcessLimiter(tiers, cfg.Auth.RateLimit.DefaultRPM)
		slog.Info("rate limiting enabled", "default_rpm", cfg.Auth.RateLimit.DefaultRPM)
	}

	// Create the proxied upstream.
	upstream, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return fmt.Errorf("parsing upstream.url: %w", err)
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)

	// Assemble the pipeline.
	authCfg := auth.Config{
		InheritHostIdentity: cfg.Auth.InheritHostIdentity,
		SendChallengeHeader: cfg.Auth.SendChallengeHeader,
		DefaultScheme:       cfg.Auth.DefaultScheme,
		SetRedirectMarker:   cfg.Auth.SetRedirectMarker,
	}
	chain := transport.Chain(
		transport.RequestID(),
		transport.Logging(slog.Default()),
		transport.Recovery(),
		observability.MetricsMiddleware,
		auth.Interceptor(authCfg, engine, limiter, auth.DefaultBypassEndpoints),
	)

	mux := http.NewServeMux()
	mux.Handle("/", chain(proxy))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in background.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"upstream", cfg.Upstream.URL,
			"token_endpoint", cfg.Auth.TokenEndpoint,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error.
	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newKeyStore builds the configured key store: postgres, or memory seeded
// from the configured API keys.
func newKeyStore(ctx context.Context, cfg *config.Config) (storage.KeyStore, error) {
	if cfg.Storage.Type == "postgres" {
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres key store: %w", err)
		}
		slog.Info("key store enabled", "type", "postgres")
		return store, nil
	}

	store := memory.New()
	for _, k := range cfg.Auth.APIKeys {
		claims := make([]storage.Claim, 0, len(k.Claims))
		for _, c := range k.Claims {
			claims = append(claims, storage.Claim{Type: c.Type, Value: c.Value})
		}
		store.Put(apikey.HashKey(k.Key), storage.KeyRecord{
			Subject:     k.Subject,
			DisplayName: k.DisplayName,
			Tier:        k.Tier,
			Claims:      claims,
		})
	}
	slog.Info("key store enabled", "type", "memory", "keys", len(cfg.Auth.APIKeys))
	return store, nil
}
