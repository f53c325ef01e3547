package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.Tracker.IntervalSeconds)
	assert.Equal(t, 3, cfg.Tracker.BatchSize)
	assert.Equal(t, 100, cfg.Tracker.BatchPauseMs)
	assert.Equal(t, 30, cfg.Tracker.PriceTTLSeconds)
	assert.Equal(t, time.Minute, cfg.PollInterval())
}

func TestIntervalValid(t *testing.T) {
	assert.True(t, IntervalValid(30))
	assert.True(t, IntervalValid(60))
	assert.True(t, IntervalValid(300))
	assert.False(t, IntervalValid(0))
	assert.False(t, IntervalValid(45))
	assert.False(t, IntervalValid(600))
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "fly" }},
		{"missing info url", func(c *Config) { c.Hyperliquid.InfoURL = "" }},
		{"bad interval", func(c *Config) { c.Tracker.IntervalSeconds = 42 }},
		{"zero batch", func(c *Config) { c.Tracker.BatchSize = 0 }},
		{"zero price ttl", func(c *Config) { c.Tracker.PriceTTLSeconds = 0 }},
		{"zero attempts", func(c *Config) { c.Notify.MaxAttempts = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "poll"
log_level = "debug"

[tracker]
interval_seconds = 300
batch_size = 5

[server]
port = 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "poll", cfg.Mode)
	assert.Equal(t, 300, cfg.Tracker.IntervalSeconds)
	assert.Equal(t, 5, cfg.Tracker.BatchSize)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://api.hyperliquid.xyz/info", cfg.Hyperliquid.InfoURL)
	assert.Equal(t, 30, cfg.Tracker.PriceTTLSeconds)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[redis]
addr = "file-redis:6379"
`), 0o644))

	t.Setenv("HYPERTRACK_REDIS_ADDR", "env-redis:6379")
	t.Setenv("HYPERTRACK_TRACKER_INTERVAL_SECONDS", "30")
	t.Setenv("HYPERTRACK_SERVER_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.Tracker.IntervalSeconds)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	assert.Error(t, err)
}
