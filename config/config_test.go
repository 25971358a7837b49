package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.HTTPAddress)
	assert.Equal(t, ":3001", cfg.Server.RPCAddress)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, float64(10), cfg.Server.MessageRate)
	assert.Equal(t, 20, cfg.Server.MessageBurst)
	assert.Equal(t, time.Minute, cfg.Server.Heartbeat)
	assert.Equal(t, 10*time.Minute, cfg.Game.TeardownGrace)
	assert.Equal(t, 6, cfg.Game.RoomIDLength)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "hangman", cfg.Metrics.Namespace)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  http_address: ":8080"
game:
  teardown_grace: 30s
database:
  driver: gorm
  postgres:
    host: db
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, 30*time.Second, cfg.Game.TeardownGrace)
	assert.Equal(t, "gorm", cfg.Database.Driver)
	assert.Equal(t, "db", cfg.Database.Postgres.Host)
	assert.Equal(t, ":3001", cfg.Server.RPCAddress, "keys missing from the file keep their defaults")
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("SERVER_HTTP_ADDRESS", ":9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: ["), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
