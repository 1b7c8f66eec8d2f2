// Package sqlite persists blobs in the kv table. Writes go through the
// single-writer db.Worker so the one SQLite connection never sees
// interleaved transactions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/quillback/fingerid/internal/db"
	"github.com/quillback/fingerid/internal/fingerid/store"
)

type KV struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewKV(db *sql.DB, writer *dbpkg.Worker) *KV {
	return &KV{db: db, writer: writer}
}

func (s *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
SELECT value FROM kv WHERE key = ?;
`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC().UnixMilli()
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO kv(key, value, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value = excluded.value,
  updated_at_ms = excluded.updated_at_ms;
`, key, value, now); err != nil {
			return fmt.Errorf("kv set %s: %w", key, err)
		}
		return nil
	})
}

func (s *KV) Delete(ctx context.Context, key string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM kv WHERE key = ?;
`, key); err != nil {
			return fmt.Errorf("kv delete %s: %w", key, err)
		}
		return nil
	})
}
