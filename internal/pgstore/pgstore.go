// Package pgstore keeps workspace records in PostgreSQL so several harbor
// processes can share one workspace.
package pgstore

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpungsan/harbor/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS harbor_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store implements workspace.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url, verifies the connection and creates the table if it
// is missing.
func Open(ctx context.Context, url string) (*Store, error) {
	if url == "" {
		return nil, errors.NewInvalidRequest("database url is required")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create harbor_kv: %w", err)
	}
	log.Printf("pgstore: connected")
	return &Store{pool: pool}, nil
}

// Load returns the value for key; ok is false when the key is unset.
func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM harbor_kv WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return value, true, nil
}

// Save upserts key. Identical values are not rewritten.
func (s *Store) Save(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO harbor_kv (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
		  value = EXCLUDED.value,
		  updated_at = NOW()
		WHERE harbor_kv.value IS DISTINCT FROM EXCLUDED.value
	`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
