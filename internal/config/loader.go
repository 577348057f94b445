package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MATCHPOOL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MATCHPOOL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Fees ──
	setUint64(&cfg.Fees.CreatorBps, "MATCHPOOL_FEES_CREATOR_BPS")
	setUint64(&cfg.Fees.PlatformBps, "MATCHPOOL_FEES_PLATFORM_BPS")

	// ── Engine ──
	setInt(&cfg.Engine.MaxRetryAttempts, "MATCHPOOL_ENGINE_MAX_RETRY_ATTEMPTS")
	setInt(&cfg.Engine.ErrorHistorySize, "MATCHPOOL_ENGINE_ERROR_HISTORY_SIZE")
	setDuration(&cfg.Engine.PayoutCacheTTL, "MATCHPOOL_ENGINE_PAYOUT_CACHE_TTL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "MATCHPOOL_DATABASE_DSN")
	setStr(&cfg.Database.Host, "MATCHPOOL_DATABASE_HOST")
	setInt(&cfg.Database.Port, "MATCHPOOL_DATABASE_PORT")
	setStr(&cfg.Database.Database, "MATCHPOOL_DATABASE_NAME")
	setStr(&cfg.Database.User, "MATCHPOOL_DATABASE_USER")
	setStr(&cfg.Database.Password, "MATCHPOOL_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "MATCHPOOL_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "MATCHPOOL_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "MATCHPOOL_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "MATCHPOOL_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MATCHPOOL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MATCHPOOL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MATCHPOOL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MATCHPOOL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MATCHPOOL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MATCHPOOL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MATCHPOOL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MATCHPOOL_S3_REGION")
	setStr(&cfg.S3.Bucket, "MATCHPOOL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MATCHPOOL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MATCHPOOL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MATCHPOOL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MATCHPOOL_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "MATCHPOOL_FEED_WS_URL")
	setStr(&cfg.Feed.ApiKey, "MATCHPOOL_FEED_API_KEY")
	setStr(&cfg.Feed.EncryptedKeyPath, "MATCHPOOL_FEED_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Feed.KeyPassword, "MATCHPOOL_FEED_KEY_PASSWORD")
	setStringSlice(&cfg.Feed.Competitions, "MATCHPOOL_FEED_COMPETITIONS")
	setDuration(&cfg.Feed.ReconnectBackoff, "MATCHPOOL_FEED_RECONNECT_BACKOFF")
	setDuration(&cfg.Feed.HandshakeTimeout, "MATCHPOOL_FEED_HANDSHAKE_TIMEOUT")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "MATCHPOOL_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "MATCHPOOL_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "MATCHPOOL_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "MATCHPOOL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MATCHPOOL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MATCHPOOL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "MATCHPOOL_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "MATCHPOOL_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MATCHPOOL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MATCHPOOL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MATCHPOOL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MATCHPOOL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MATCHPOOL_MODE")
	setStr(&cfg.LogLevel, "MATCHPOOL_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
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
