package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsExcessiveFees(t *testing.T) {
	cfg := Defaults()
	cfg.Fees.CreatorBps = 6_000
	cfg.Fees.PlatformBps = 5_000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bps exceeds")
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Redis.Addr = ""
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "server: port")
}

func TestValidateFeedRequiredForSettleMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "settle"
	cfg.Feed.WsURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed: ws_url")
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "full"

[fees]
creator_bps = 150
platform_bps = 250

[engine]
payout_cache_ttl = "30s"

[database]
host = "db.internal"
port = 5433
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("MATCHPOOL_FEES_CREATOR_BPS", "400")
	t.Setenv("MATCHPOOL_DATABASE_PASSWORD", "hunter2")
	t.Setenv("MATCHPOOL_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, uint64(400), cfg.Fees.CreatorBps, "env overrides file")
	assert.Equal(t, uint64(250), cfg.Fees.PlatformBps, "file overrides default")
	assert.Equal(t, "30s", cfg.Engine.PayoutCacheTTL.Duration.String())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "dbpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Feed.ApiKey = "feedkey"
	cfg.Notify.TelegramToken = "tgtoken"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Feed.ApiKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original is untouched.
	assert.Equal(t, "dbpass", cfg.Database.Password)
}
