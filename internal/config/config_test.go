package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  name: ledger
  port: 8081
database:
  driver: postgres
  port: 5432
bus:
  driver: redis
  publish_timeout: 750ms
lock:
  driver: local
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ledger", cfg.Server.Name)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "redis", cfg.Bus.Driver)
	assert.Equal(t, 750*time.Millisecond, cfg.Bus.PublishTimeout)
	assert.Equal(t, "local", cfg.Lock.Driver)

	// defaults
	assert.Equal(t, "customer.created", cfg.Bus.Topic)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 5, cfg.Outbox.MaxRetryCount)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")
	t.Setenv("COREBANK_SERVER_PORT", "9000")
	t.Setenv("COREBANK_DATABASE_DRIVER", "sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
