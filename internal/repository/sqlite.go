// Package repository implements the SQLite backend over a single kv table.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps collections as rows of a kv table in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if missing) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY on commit.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			rev INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the stored value for key. Cleared rows hold a NULL value.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM kv WHERE key = ? AND value IS NOT NULL`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Revision returns the rev column of key, 0 when the row does not exist.
func (s *SQLiteStore) Revision(ctx context.Context, key string) (int64, error) {
	const query = `SELECT rev FROM kv WHERE key = ?`

	var rev int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&rev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get revision of %s: %w", key, err)
	}
	return rev, nil
}

// PutAll upserts every entry in one transaction.
func (s *SQLiteStore) PutAll(ctx context.Context, entries []Entry) error {
	const query = `
		INSERT INTO kv (key, value, rev, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, rev = kv.rev + 1, updated_at = CURRENT_TIMESTAMP
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, query, e.Key, string(e.Value)); err != nil {
			return fmt.Errorf("failed to put %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear empties every row. Rows are kept so revisions keep counting.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	const query = `UPDATE kv SET value = NULL, rev = rev + 1, updated_at = CURRENT_TIMESTAMP`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
