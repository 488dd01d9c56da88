package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AppEnvDev, cfg.App.Env)
	assert.True(t, cfg.App.IsDev())
	assert.Equal(t, "http://localhost:9999", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.HTTPTimeout)
	assert.Equal(t, StorageBackendFile, cfg.Storage.Backend)
	assert.Equal(t, ".campuscrave", cfg.Storage.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Poller.OrderInterval)
	assert.Equal(t, 2*time.Second, cfg.Poller.QueueInterval)
	assert.Equal(t, 30*time.Second, cfg.Poller.MaxBackoff)
	assert.Equal(t, ":9464", cfg.Metrics.ListenAddr)
	assert.False(t, cfg.Tracker.PlaceOrder)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CRAVE_APP_ENV", "prod")
	t.Setenv("CRAVE_BACKEND_URL", "https://crave.example.edu")
	t.Setenv("CRAVE_STORAGE_BACKEND", "redis")
	t.Setenv("CRAVE_REDIS_ADDR", "localhost:6379")
	t.Setenv("CRAVE_POLL_ORDER_INTERVAL", "5s")
	t.Setenv("CRAVE_STALL_NAME", "Chai Point")
	t.Setenv("CRAVE_ORDER_ID", "42")
	t.Setenv("CRAVE_PLACE_ORDER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProd())
	assert.Equal(t, "https://crave.example.edu", cfg.Backend.BaseURL)
	assert.Equal(t, StorageBackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 5*time.Second, cfg.Poller.OrderInterval)
	assert.Equal(t, "Chai Point", cfg.Vendor.StallName)
	assert.Equal(t, int64(42), cfg.Tracker.OrderID)
	assert.True(t, cfg.Tracker.PlaceOrder)
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	t.Setenv("CRAVE_STORAGE_BACKEND", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")
}
