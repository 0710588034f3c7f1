package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(withNoFile(t))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
	assert.Equal(t, CatalogCacheMemory, cfg.CatalogCache)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://portal.example.com/api")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("CATALOG_CACHE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := Load(withNoFile(t))
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, CatalogCacheRedis, cfg.CatalogCache)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL: debug\nMAX_UPLOAD_BYTES: 1024\n"), 0o600))

	v := New()
	v.SetConfigFile(path)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(1024), cfg.MaxUploadBytes)
}

func TestValidate(t *testing.T) {
	base := func() PortalConfig {
		return PortalConfig{
			APIBaseURL:     "http://localhost:8080/api",
			RequestTimeout: time.Second,
			CatalogCache:   CatalogCacheNone,
			MaxUploadBytes: 1,
		}
	}

	tests := []struct {
		name   string
		mutate func(*PortalConfig)
	}{
		{"relative url", func(c *PortalConfig) { c.APIBaseURL = "/api" }},
		{"zero timeout", func(c *PortalConfig) { c.RequestTimeout = 0 }},
		{"unknown cache", func(c *PortalConfig) { c.CatalogCache = "disk" }},
		{"redis without addr", func(c *PortalConfig) { c.CatalogCache = CatalogCacheRedis; c.RedisAddr = "" }},
		{"no upload budget", func(c *PortalConfig) { c.MaxUploadBytes = 0 }},
	}

	ok := base()
	require.NoError(t, ok.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

// withNoFile points viper at an empty directory so only defaults and env apply.
func withNoFile(t *testing.T) *viper.Viper {
	t.Helper()
	v := New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName("portal-test-absent")
	return v
}
