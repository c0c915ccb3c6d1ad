package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, 16, cfg.Storage.CacheSize)
	assert.Equal(t, 5*time.Second, cfg.Storage.LockTimeout)
	assert.Equal(t, "Hero", cfg.Economy.DefaultNickname)
	assert.Equal(t, int64(0), cfg.Economy.StartingCoins)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
app:
  timezone: UTC
storage:
  driver: sqlite
  path: /tmp/questhunt.db
economy:
  starting_coins: 250
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600))
	t.Setenv("QUESTHUNT_ECONOMY_DEFAULT_NICKNAME", "Rook")
	t.Setenv("QUESTHUNT_STORAGE_CACHE_SIZE", "64")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/questhunt.db", cfg.Storage.Path)
	assert.Equal(t, int64(250), cfg.Economy.StartingCoins)
	assert.Equal(t, "Rook", cfg.Economy.DefaultNickname)
	assert.Equal(t, 64, cfg.Storage.CacheSize)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("QUESTHUNT_STORAGE_DRIVER", "floppy")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name    string
		tz      string
		wantErr bool
	}{
		{"empty is local", "", false},
		{"local", "Local", false},
		{"utc", "UTC", false},
		{"unknown", "Mars/Olympus", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AppConfig{Timezone: tt.tz}
			_, err := a.Location()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=disable", d.DSN())
}
