package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_USER", "venuepulse")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "venuepulse")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Occupancy.RejectAtCapacity)
	assert.Equal(t, 30, cfg.Occupancy.MutationsPerMinute)
	assert.Equal(t, 24*time.Hour, cfg.Trending.DefaultWindow)
	assert.Equal(t, 15*time.Second, cfg.Trending.CacheTTL)
}

func TestNewOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OCCUPANCY_REJECT_AT_CAPACITY", "true")
	t.Setenv("OCCUPANCY_MUTATIONS_PER_MINUTE", "5")
	t.Setenv("TRENDING_WINDOW", "6h")
	t.Setenv("TRENDING_CACHE_TTL", "30s")
	t.Setenv("JWT_TTL", "1h")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Occupancy.RejectAtCapacity)
	assert.Equal(t, 5, cfg.Occupancy.MutationsPerMinute)
	assert.Equal(t, 6*time.Hour, cfg.Trending.DefaultWindow)
	assert.Equal(t, 30*time.Second, cfg.Trending.CacheTTL)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestNewMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := New()
	assert.Error(t, err)
}

func TestNewInvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "not-a-port")

	_, err := New()
	assert.Error(t, err)
}
