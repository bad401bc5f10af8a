// Package postgres provides a PostgreSQL implementation of storage.KeyStore.
// It uses pgx/v5 for connection pooling and JSONB for claim storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/einlass-dev/einlass/pkg/storage"
)

// Store is a PostgreSQL-backed KeyStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.KeyStore at compile time.
var _ storage.KeyStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// LookupKey returns the record for the given hex-encoded SHA-256 key hash.
func (s *Store) LookupKey(ctx context.Context, keyHash string) (*storage.KeyRecord, error) {
	var (
		rec        storage.KeyRecord
		claimsJSON []byte
		revokedAt  *time.Time
	)

	err := s.pool.QueryRow(ctx, `
		SELECT subject, display_name, tier, claims, revoked_at
		FROM api_keys
		WHERE key_hash = $1
	`, keyHash).Scan(&rec.Subject, &rec.DisplayName, &rec.Tier, &claimsJSON, &revokedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying key: %w", err)
	}

	if revokedAt != nil {
		return nil, storage.ErrRevoked
	}

	if len(claimsJSON) > 0 {
		if err := json.Unmarshal(claimsJSON, &rec.Claims); err != nil {
			return nil, fmt.Errorf("unmarshaling claims: %w", err)
		}
	}

	return &rec, nil
}

// InsertKey stores a key record under the given hex-encoded key hash.
func (s *Store) InsertKey(ctx context.Context, keyHash string, rec storage.KeyRecord) error {
	claimsJSON, err := json.Marshal(rec.Claims)
	if err != nil {
		return fmt.Errorf("marshaling claims: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO api_keys (key_hash, subject, display_name, tier, claims, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, keyHash, rec.Subject, rec.DisplayName, rec.Tier, claimsJSON, time.Now())

	if err != nil {
		return fmt.Errorf("inserting key: %w", err)
	}
	return nil
}

// RevokeKey marks the key with the given hash as revoked. Subsequent
// lookups fail with ErrRevoked. Returns ErrNotFound for unknown hashes.
func (s *Store) RevokeKey(ctx context.Context, keyHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET revoked_at = $2
		WHERE key_hash = $1 AND revoked_at IS NULL
	`, keyHash, time.Now())

	if err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already revoked; check which.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM api_keys WHERE key_hash = $1)", keyHash,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking key: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
