package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HYPERTRACK_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HYPERTRACK_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.InfoURL, "HYPERTRACK_HYPERLIQUID_INFO_URL")
	setInt(&cfg.Hyperliquid.TimeoutSeconds, "HYPERTRACK_HYPERLIQUID_TIMEOUT_SECONDS")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "HYPERTRACK_SUPABASE_DSN")
	setStr(&cfg.Supabase.Host, "HYPERTRACK_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "HYPERTRACK_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "HYPERTRACK_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "HYPERTRACK_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "HYPERTRACK_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "HYPERTRACK_SUPABASE_SSLMODE")
	setInt(&cfg.Supabase.PoolMaxConns, "HYPERTRACK_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "HYPERTRACK_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "HYPERTRACK_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HYPERTRACK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HYPERTRACK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HYPERTRACK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HYPERTRACK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HYPERTRACK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HYPERTRACK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "HYPERTRACK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HYPERTRACK_S3_REGION")
	setStr(&cfg.S3.Bucket, "HYPERTRACK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "HYPERTRACK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HYPERTRACK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "HYPERTRACK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "HYPERTRACK_S3_FORCE_PATH_STYLE")

	// ── Tracker ──
	setInt(&cfg.Tracker.IntervalSeconds, "HYPERTRACK_TRACKER_INTERVAL_SECONDS")
	setInt(&cfg.Tracker.BatchSize, "HYPERTRACK_TRACKER_BATCH_SIZE")
	setInt(&cfg.Tracker.BatchPauseMs, "HYPERTRACK_TRACKER_BATCH_PAUSE_MS")
	setInt(&cfg.Tracker.PriceTTLSeconds, "HYPERTRACK_TRACKER_PRICE_TTL_SECONDS")

	// ── Notify ──
	setStr(&cfg.Notify.SendEndpoint, "HYPERTRACK_NOTIFY_SEND_ENDPOINT")
	setStr(&cfg.Notify.APIKey, "HYPERTRACK_NOTIFY_API_KEY")
	setStr(&cfg.Notify.FromAddress, "HYPERTRACK_NOTIFY_FROM_ADDRESS")
	setInt(&cfg.Notify.MaxAttempts, "HYPERTRACK_NOTIFY_MAX_ATTEMPTS")
	setInt(&cfg.Notify.BaseDelayMs, "HYPERTRACK_NOTIFY_BASE_DELAY_MS")
	setInt(&cfg.Notify.MaxDelayMs, "HYPERTRACK_NOTIFY_MAX_DELAY_MS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "HYPERTRACK_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "HYPERTRACK_ARCHIVE_RETENTION_DAYS")
	setInt(&cfg.Archive.IntervalHours, "HYPERTRACK_ARCHIVE_INTERVAL_HOURS")

	// ── Server ──
	setInt(&cfg.Server.Port, "HYPERTRACK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HYPERTRACK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "HYPERTRACK_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "HYPERTRACK_MODE")
	setStr(&cfg.LogLevel, "HYPERTRACK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
