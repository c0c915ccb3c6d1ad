// Package db connects to PostgreSQL for the postgres storage driver.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"questhunt/internal/config"
)

// Fallbacks for unset pool settings. A single user CLI needs few connections.
const (
	defaultConnectTimeout  = 10 * time.Second
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
	healthCheckPeriod      = time.Minute
)

// PoolConfig translates the database section of the config into a pgx pool
// config. It does not connect.
func PoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pc.MaxConns = int32(max(cfg.PoolSize, 1))
	pc.MinConns = 0
	pc.ConnConfig.ConnectTimeout = orDefault(cfg.ConnectTimeout, defaultConnectTimeout)
	pc.MaxConnLifetime = orDefault(cfg.MaxConnLifetime, defaultMaxConnLifetime)
	pc.MaxConnIdleTime = orDefault(cfg.MaxConnIdleTime, defaultMaxConnIdleTime)
	pc.HealthCheckPeriod = healthCheckPeriod
	return pc, nil
}

// Connect opens a pool and pings it. The returned pool is ready for queries.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Int32("max_conns", pc.MaxConns).
		Msg("Connecting to PostgreSQL")

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}
	return pool, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
