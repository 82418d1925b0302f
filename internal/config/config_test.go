package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mercadito/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":         "postgres://localhost/mercadito",
		"APP_ENV":              "",
		"REDIS_URL":            "",
		"TAB_STOCK_POLICY":     "",
		"OFFER_CACHE_TTL":      "",
		"RATE_LIMIT_WRITE_MAX": "",
		"DB_AUTO_MIGRATE":      "",
		"PORT":                 "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.True(t, cfg.Debug())
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, config.TabStockCaller, cfg.TabStockPolicy)
	require.Equal(t, 5*time.Minute, cfg.OfferCacheTTL)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, 120, cfg.RateLimitWriteMax)
	require.Equal(t, int64(1<<20), cfg.BodyLimitBytes)
	require.True(t, cfg.AutoMigrate)
	require.True(t, cfg.SecurityHeaders)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["APP_ENV"] = "production"
	env["TAB_STOCK_POLICY"] = "ENGINE"
	env["OFFER_CACHE_TTL"] = "30s"
	env["RATE_LIMIT_WRITE_MAX"] = "10"
	env["DB_AUTO_MIGRATE"] = "false"
	env["PORT"] = ":9000"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.False(t, cfg.Debug())
	require.Equal(t, config.TabStockEngine, cfg.TabStockPolicy)
	require.Equal(t, 30*time.Second, cfg.OfferCacheTTL)
	require.Equal(t, 10, cfg.RateLimitWriteMax)
	require.False(t, cfg.AutoMigrate)
	require.Equal(t, ":9000", cfg.HTTPAddr())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadRejectsUnknownTabPolicy(t *testing.T) {
	env := baseEnv()
	env["TAB_STOCK_POLICY"] = "sometimes"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "TAB_STOCK_POLICY")
}
