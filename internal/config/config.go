// Package config defines the top-level configuration for the position
// tracker and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by HYPERTRACK_* environment
// variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Supabase    SupabaseConfig    `toml:"supabase"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Tracker     TrackerConfig     `toml:"tracker"`
	Notify      NotifyConfig      `toml:"notify"`
	Archive     ArchiveConfig     `toml:"archive"`
	Server      ServerConfig      `toml:"server"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds the exchange info API endpoint.
type HyperliquidConfig struct {
	InfoURL        string `toml:"info_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// TrackerConfig holds poll-cycle parameters.
type TrackerConfig struct {
	// IntervalSeconds is the poll interval. Only 30, 60, and 300 are valid;
	// the value is runtime-mutable through the settings endpoint.
	IntervalSeconds int `toml:"interval_seconds"`
	// BatchSize bounds concurrent clearinghouseState requests per batch.
	BatchSize int `toml:"batch_size"`
	// BatchPauseMs is the fixed pause between address batches.
	BatchPauseMs int `toml:"batch_pause_ms"`
	// PriceTTLSeconds is the hard TTL of the whole-map price cache.
	PriceTTLSeconds int `toml:"price_ttl_seconds"`
}

// NotifyConfig holds email alert transport parameters. An empty APIKey
// degrades the sender to log-only instead of failing.
type NotifyConfig struct {
	SendEndpoint string `toml:"send_endpoint"`
	APIKey       string `toml:"api_key"`
	FromAddress  string `toml:"from_address"`
	// MaxAttempts bounds retries per alert; unbounded retry loops are not
	// supported on purpose.
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMs int `toml:"base_delay_ms"`
	MaxDelayMs  int `toml:"max_delay_ms"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
	IntervalHours int  `toml:"interval_hours"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// ValidIntervals are the poll intervals the settings endpoint accepts.
var ValidIntervals = []int{30, 60, 300}

// Defaults returns a Config pre-filled with sensible defaults. Load merges
// the TOML file and environment overrides on top of this.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			InfoURL:        "https://api.hyperliquid.xyz/info",
			TimeoutSeconds: 15,
		},
		Supabase: SupabaseConfig{
			Port:         5432,
			SSLMode:      "require",
			PoolMaxConns: 8,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Tracker: TrackerConfig{
			IntervalSeconds: 60,
			BatchSize:       3,
			BatchPauseMs:    100,
			PriceTTLSeconds: 30,
		},
		Notify: NotifyConfig{
			SendEndpoint: "https://api.resend.com/emails",
			FromAddress:  "alerts@hypertrack.local",
			MaxAttempts:  3,
			BaseDelayMs:  500,
			MaxDelayMs:   5000,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			IntervalHours: 24,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks the configuration for structural problems. It is called by
// main after Load.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "poll":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Hyperliquid.InfoURL == "" {
		return fmt.Errorf("config: hyperliquid.info_url is required")
	}

	if !IntervalValid(c.Tracker.IntervalSeconds) {
		return fmt.Errorf("config: tracker.interval_seconds must be one of %v, got %d",
			ValidIntervals, c.Tracker.IntervalSeconds)
	}
	if c.Tracker.BatchSize < 1 {
		return fmt.Errorf("config: tracker.batch_size must be >= 1")
	}
	if c.Tracker.PriceTTLSeconds < 1 {
		return fmt.Errorf("config: tracker.price_ttl_seconds must be >= 1")
	}

	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("config: notify.max_attempts must be >= 1")
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive enabled but s3.bucket/s3.region missing")
		}
		if c.Archive.RetentionDays < 1 {
			return fmt.Errorf("config: archive.retention_days must be >= 1")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	return nil
}

// IntervalValid reports whether the given poll interval is one of the
// supported values.
func IntervalValid(seconds int) bool {
	for _, v := range ValidIntervals {
		if v == seconds {
			return true
		}
	}
	return false
}

// PollInterval returns the configured poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Tracker.IntervalSeconds) * time.Second
}
