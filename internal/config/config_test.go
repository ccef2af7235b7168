package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 20, cfg.Resolver.ChunkSize)
	assert.Equal(t, 2, cfg.Resolver.FetchConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Resolver.AppTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Resolver.UserTTL)
	assert.Equal(t, 72*time.Hour, cfg.Resolver.FriendsTTL)
	assert.Equal(t, 72*time.Hour, cfg.Resolver.GamesTTL)
	assert.Equal(t, 720*time.Hour, cfg.Resolver.AppTTL)
	assert.Equal(t, 3*time.Hour, cfg.Resolver.AppNegativeTTL)
	assert.False(t, cfg.Debug)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
log:
  level: debug
  format: text
steam:
  api_key: "test-key"
cache:
  backend: memory
resolver:
  chunk_size: 5
  app_negative_ttl: 1h
debug: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "test-key", cfg.Steam.APIKey)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5, cfg.Resolver.ChunkSize)
	assert.Equal(t, time.Hour, cfg.Resolver.AppNegativeTTL)
	assert.True(t, cfg.Debug)

	// Unset fields still pick up defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 2, cfg.Resolver.FetchConcurrency)
	assert.Equal(t, 720*time.Hour, cfg.Resolver.AppTTL)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_STEAM_KEY", "from-env")
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6379")

	path := writeConfig(t, `
steam:
  api_key: "${TEST_STEAM_KEY}"
cache:
  redis:
    addr: "${TEST_REDIS_ADDR}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Steam.APIKey)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
