package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog cache backends.
const (
	CatalogCacheMemory = "memory"
	CatalogCacheRedis  = "redis"
	CatalogCacheNone   = "none"
)

// PortalConfig holds all configuration for the portal client and the
// reference server. Tags use mapstructure for Viper unmarshalling.
type PortalConfig struct {
	APIBaseURL     string        `mapstructure:"API_BASE_URL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogPretty      bool          `mapstructure:"LOG_PRETTY"`

	CatalogCache    string        `mapstructure:"CATALOG_CACHE"` // memory, redis or none
	CatalogCacheTTL time.Duration `mapstructure:"CATALOG_CACHE_TTL"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`

	MaxUploadBytes  int64  `mapstructure:"MAX_UPLOAD_BYTES"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Reference server only.
	HTTPPort          string        `mapstructure:"HTTP_PORT"`
	JWTSecretKey      string        `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenTTLMin int           `mapstructure:"ACCESS_TOKEN_TTL_MIN"`
	RefreshTTL        time.Duration `mapstructure:"REFRESH_TTL"`
	SecureCookies     bool          `mapstructure:"SECURE_COOKIES"`
	AdminEmail        string        `mapstructure:"ADMIN_EMAIL"` // seeded admin account, optional
	AdminPassword     string        `mapstructure:"ADMIN_PASSWORD"`
}

// DefaultMaxUploadBytes is the document size ceiling (10 MiB).
const DefaultMaxUploadBytes = 10 * 1024 * 1024

// New returns a viper instance with the portal defaults, search paths and
// environment binding applied but nothing read yet.
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("portal")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/portal/")
	v.AddConfigPath("$HOME/.portal")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default, otherwise Unmarshal ignores its env var.
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("REQUEST_TIMEOUT", 15*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("CATALOG_CACHE", CatalogCacheMemory)
	v.SetDefault("CATALOG_CACHE_TTL", 5*time.Minute)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	v.SetDefault("OTEL_SERVICE_NAME", "insurance-portal")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
	v.SetDefault("REFRESH_TTL", 7*24*time.Hour)
	v.SetDefault("SECURE_COOKIES", false)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")

	return v
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*PortalConfig, error) {
	return Load(New())
}

// Load reads the config file of v (a missing file is fine) and decodes it.
func Load(v *viper.Viper) (*PortalConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg PortalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and ranges.
func (c *PortalConfig) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	switch c.CatalogCache {
	case CatalogCacheMemory, CatalogCacheNone:
	case CatalogCacheRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required when CATALOG_CACHE=redis")
		}
	default:
		return fmt.Errorf("CATALOG_CACHE must be one of memory, redis, none; got %q", c.CatalogCache)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
