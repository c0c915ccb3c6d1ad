package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"questhunt/internal/config"
)

func TestPoolConfig(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.DatabaseConfig
		wantConns    int32
		wantTimeout  time.Duration
		wantLifetime time.Duration
	}{
		{
			name:         "defaults",
			cfg:          config.DatabaseConfig{Host: "localhost", Port: 5432, User: "quest", Name: "questhunt"},
			wantConns:    1,
			wantTimeout:  defaultConnectTimeout,
			wantLifetime: defaultMaxConnLifetime,
		},
		{
			name: "configured",
			cfg: config.DatabaseConfig{
				Host: "db", Port: 6432, User: "quest", Password: "secret", Name: "questhunt",
				PoolSize: 4, ConnectTimeout: 3 * time.Second, MaxConnLifetime: 5 * time.Minute,
			},
			wantConns:    4,
			wantTimeout:  3 * time.Second,
			wantLifetime: 5 * time.Minute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := PoolConfig(&tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantConns, pc.MaxConns)
			assert.Equal(t, tt.wantTimeout, pc.ConnConfig.ConnectTimeout)
			assert.Equal(t, tt.wantLifetime, pc.MaxConnLifetime)
			assert.Equal(t, defaultMaxConnIdleTime, pc.MaxConnIdleTime)
			assert.Equal(t, tt.cfg.Host, pc.ConnConfig.Host)
			assert.Equal(t, uint16(tt.cfg.Port), pc.ConnConfig.Port)
			assert.Equal(t, tt.cfg.Name, pc.ConnConfig.Database)
		})
	}
}
