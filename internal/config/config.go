// Package config defines the top-level configuration for the matchpool
// settlement backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sportpools/matchpool/internal/engine"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MATCHPOOL_* environment variables.
type Config struct {
	Fees     FeesConfig     `toml:"fees"`
	Engine   EngineConfig   `toml:"engine"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// FeesConfig holds the basis-point fee split applied to every market pool.
// The participant pool gets whatever the creator and platform fees leave.
type FeesConfig struct {
	CreatorBps  uint64 `toml:"creator_bps"`
	PlatformBps uint64 `toml:"platform_bps"`
}

// Policy converts the configured fees into an engine FeePolicy.
func (f FeesConfig) Policy() engine.FeePolicy {
	return engine.FeePolicy{CreatorBps: f.CreatorBps, PlatformBps: f.PlatformBps}
}

// EngineConfig holds payout-engine tuning knobs.
type EngineConfig struct {
	// MaxRetryAttempts is the per-market retry budget before the recovery
	// advisor forces a full data refresh.
	MaxRetryAttempts int `toml:"max_retry_attempts"`
	// ErrorHistorySize bounds the diagnostic ring buffer of classified errors.
	ErrorHistorySize int `toml:"error_history_size"`
	// PayoutCacheTTL is how long computed payout results stay cached.
	PayoutCacheTTL duration `toml:"payout_cache_ttl"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// S3Config holds S3-compatible object storage parameters for the settlement
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig holds the external live-score feed parameters.
type FeedConfig struct {
	WsURL string `toml:"ws_url"`
	// ApiKey authenticates against the score provider. Prefer the encrypted
	// file over the plaintext key in anything but local development.
	ApiKey           string   `toml:"api_key"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	Competitions     []string `toml:"competitions"`
	ReconnectBackoff duration `toml:"reconnect_backoff"`
	HandshakeTimeout duration `toml:"handshake_timeout"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Fees: FeesConfig{
			CreatorBps:  200,
			PlatformBps: 300,
		},
		Engine: EngineConfig{
			MaxRetryAttempts: 3,
			ErrorHistorySize: 50,
			PayoutCacheTTL:   duration{15 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "matchpool",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "matchpool-archive",
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			WsURL:            "wss://feed.scorestream.example/v2/ws",
			ReconnectBackoff: duration{2 * time.Second},
			HandshakeTimeout: duration{15 * time.Second},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8080,
			RateLimitPerMin: 240,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"serve":  true,
	"settle": true,
	"full":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency. A fee policy
// failure here is fatal by contract: the process must not start with fees
// that exceed 100%.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, settle, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Fees — misconfiguration here must prevent startup, never be clamped.
	if err := c.Fees.Policy().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// Engine
	if c.Engine.MaxRetryAttempts < 1 {
		errs = append(errs, "engine: max_retry_attempts must be >= 1")
	}
	if c.Engine.ErrorHistorySize < 1 {
		errs = append(errs, "engine: error_history_size must be >= 1")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only required when archival is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Feed — settlement modes need match results.
	if c.Mode == "settle" || c.Mode == "full" {
		if c.Feed.WsURL == "" {
			errs = append(errs, "feed: ws_url is required for mode "+c.Mode)
		}
		if c.Feed.EncryptedKeyPath != "" && c.Feed.KeyPassword == "" {
			errs = append(errs, "feed: key_password is required when encrypted_key_path is set")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 1 {
			errs = append(errs, "server: rate_limit_per_min must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
