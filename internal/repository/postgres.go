// Package repository implements the PostgreSQL backend: collections live as
// JSONB rows of a kv table with a revision counter.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value JSONB,
		rev BIGINT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresStore keeps collections as JSONB rows of a kv table.
type PostgresStore struct {
	pool    *pgxpool.Pool
	onClose func()
}

// NewPostgresStore creates a PostgresStore over an open pool. The kv table must exist.
// onClose, when set, runs on Close.
func NewPostgresStore(pool *pgxpool.Pool, onClose func()) *PostgresStore {
	return &PostgresStore{pool: pool, onClose: onClose}
}

// migratePostgres creates the kv table if it is missing.
func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	log.Debug().Msg("Migration: kv table ready")
	return nil
}

// Get returns the stored document for key. Cleared rows hold a NULL value.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value::text FROM kv WHERE key = $1 AND value IS NOT NULL`

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Revision returns the rev column of key.
func (s *PostgresStore) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := s.pool.QueryRow(ctx, `SELECT rev FROM kv WHERE key = $1`, key).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get revision of %s: %w", key, err)
	}
	return rev, nil
}

// PutAll upserts every entry in one transaction.
func (s *PostgresStore) PutAll(ctx context.Context, entries []Entry) error {
	const query = `
		INSERT INTO kv (key, value, rev, updated_at) VALUES ($1, $2::jsonb, 1, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, rev = kv.rev + 1, updated_at = NOW()
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		if _, err := tx.Exec(ctx, query, e.Key, string(e.Value)); err != nil {
			return fmt.Errorf("failed to put %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear empties every row and bumps its revision.
func (s *PostgresStore) Clear(ctx context.Context) error {
	const query = `UPDATE kv SET value = NULL, rev = rev + 1, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

// Close runs the close hook.
func (s *PostgresStore) Close() error {
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
