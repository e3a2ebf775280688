package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ranger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
  path: /ws
  session_queue_size: 32
auth:
  jwt_public_key: /etc/ranger/jwt.pub
bus:
  type: redis
  redis:
    addr: localhost:6379
    db: 1
logger:
  level: debug
`)

	cfg, err := LoadConfig[RangerConfig](path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/ws", cfg.Server.Path)
	assert.Equal(t, 32, cfg.Server.SessionQueueSize)
	assert.Equal(t, "/etc/ranger/jwt.pub", cfg.Auth.JWTPublicKey)
	assert.Equal(t, "redis", cfg.Bus.Type)
	assert.Equal(t, "localhost:6379", cfg.Bus.Redis.Addr)
	assert.Equal(t, 1, cfg.Bus.Redis.DB)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
auth:
  jwt_public_key: jwt.pub
`)

	cfg, err := LoadConfig[RangerConfig](path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/", cfg.Server.Path)
	assert.Equal(t, 100, cfg.Server.SessionQueueSize)
	assert.Equal(t, "memory", cfg.Bus.Type)
	assert.Equal(t, "peatio.events.ranger.*", cfg.Bus.Pattern)
	assert.Equal(t, "ranger", cfg.Metrics.Namespace)
}

func TestLoadConfig_EnvResolution(t *testing.T) {
	t.Setenv("RANGER_TEST_REDIS_ADDR", "10.0.0.1:6379")
	path := writeTempConfig(t, `
bus:
  type: redis
  redis:
    addr: ${RANGER_TEST_REDIS_ADDR}
    username: ${RANGER_TEST_REDIS_USER:default_user}
`)

	cfg, err := LoadConfig[RangerConfig](path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:6379", cfg.Bus.Redis.Addr)
	// unset variable falls back to the declared default
	assert.Equal(t, "default_user", cfg.Bus.Redis.Username)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig[RangerConfig](filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [not a mapping")
	_, err := LoadConfig[RangerConfig](path)
	assert.Error(t, err)
}
