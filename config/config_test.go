package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/actiongate/config"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodySize)
	assert.Equal(t, 9090, cfg.Ops.Port)
	assert.Equal(t, "/metrics", cfg.Ops.Path)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "actiongate", cfg.NATS.Name)
	assert.Equal(t, "invoker.activations", cfg.Invoker.Subject)
	assert.Equal(t, 60*time.Second, cfg.Invoker.MaxBlockingWait)
	assert.Equal(t, 120, cfg.Throttle.InvocationsPerMinute)
	assert.Equal(t, 100, cfg.Throttle.ConcurrentInvocations)
	assert.Equal(t, 30*time.Second, cfg.Store.IdentityCacheTTL)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"http port out of range", func(c *config.Config) { c.HTTP.Port = 70000 }},
		{"negative body size", func(c *config.Config) { c.HTTP.MaxBodySize = -1 }},
		{"ops port collides with http", func(c *config.Config) {
			c.HTTP.Port = 8080
			c.Ops.Port = 8080
		}},
		{"blank nats url", func(c *config.Config) { c.NATS.URLs = []string{" "} }},
		{"sub-second blocking wait", func(c *config.Config) { c.Invoker.MaxBlockingWait = 10 * time.Millisecond }},
		{"negative rate limit", func(c *config.Config) { c.Throttle.InvocationsPerMinute = -5 }},
		{"negative concurrency limit", func(c *config.Config) { c.Throttle.ConcurrentInvocations = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "invoker.activations", cfg.Invoker.Subject)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("ACTIONGATE_HTTP_PORT", "9999")
	t.Setenv("ACTIONGATE_THROTTLE_REDIS_ADDR", "redis:6379")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.HTTP.Port)
	assert.Equal(t, "redis:6379", cfg.Throttle.RedisAddr)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
http:
  port: 8181
  max_body_size: 2048
invoker:
  subject: custom.subject
  max_blocking_wait: 5s
throttle:
  invocations_per_minute: 10
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTP.Port)
	assert.Equal(t, int64(2048), cfg.HTTP.MaxBodySize)
	assert.Equal(t, "custom.subject", cfg.Invoker.Subject)
	assert.Equal(t, 5*time.Second, cfg.Invoker.MaxBlockingWait)
	assert.Equal(t, 10, cfg.Throttle.InvocationsPerMinute)
	assert.Equal(t, 9090, cfg.Ops.Port, "unset fields keep defaults")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 70000\n"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}
