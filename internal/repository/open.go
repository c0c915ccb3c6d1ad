// Package repository selects and opens the configured storage backend.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"questhunt/internal/config"
	"questhunt/internal/pkg/db"
)

// Open builds the Store selected by cfg.Storage.Driver.
// Persistent backends are wrapped in a CachedStore when cache_size > 0; every
// one of them is Versioned, so cached reads stay consistent with writes from
// other processes sharing the data.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverFile:
		store, err = NewFileStore(cfg.Storage.Path)
	case config.DriverSQLite:
		path := sqlitePath(cfg.Storage.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		store, err = NewSQLiteStore(ctx, path)
	case config.DriverPostgres:
		store, err = openPostgres(ctx, &cfg.Database)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("driver", cfg.Storage.Driver).
		Str("path", cfg.Storage.Path).
		Int("cache_size", cfg.Storage.CacheSize).
		Msg("Storage opened")

	if cfg.Storage.CacheSize <= 0 {
		return store, nil
	}
	cached, err := NewCachedStore(store, cfg.Storage.CacheSize)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return cached, nil
}

func openPostgres(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgresStore(pool, pool.Close), nil
}

// sqlitePath treats a path without a .db/.sqlite suffix as a directory.
func sqlitePath(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") {
		return path
	}
	return filepath.Join(path, "questhunt.db")
}
