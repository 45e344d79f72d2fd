package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"lukechampine.com/blake3"

	"github.com/hpungsan/harbor/internal/errors"
)

// KV stores string records in the kv table. It implements workspace.Store.
type KV struct {
	db *sql.DB
}

// NewKV wraps an initialized database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Record is a stored value with its metadata.
type Record struct {
	Key       string
	Value     string
	Digest    string
	UpdatedAt int64
}

// Digest returns the hex BLAKE3 digest stored alongside a value.
func Digest(value string) string {
	sum := blake3.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Load returns the value for key; ok is false when the key is unset.
func (s *KV) Load(ctx context.Context, key string) (string, bool, error) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return rec.Value, true, nil
}

// Save upserts key. A value identical to the stored one (same digest) is not
// rewritten, so updated_at tracks the last real change.
func (s *KV) Save(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv (key, value, digest, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		  value = excluded.value,
		  digest = excluded.digest,
		  updated_at = excluded.updated_at
		WHERE kv.digest != excluded.digest
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, Digest(value), time.Now().UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Get returns the full record for key.
func (s *KV) Get(ctx context.Context, key string) (*Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, digest, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&rec.Key, &rec.Value, &rec.Digest, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(key)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &rec, nil
}
