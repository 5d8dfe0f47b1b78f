// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/miracckms/Couse-Selector-Advance/internal/credentials"
	"github.com/miracckms/Couse-Selector-Advance/internal/logger"
	"github.com/spf13/viper"
)

// Credential store kinds.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreKeychain = "keychain"
	StoreMemory   = "memory"
	StoreEnv      = "env"
)

type Config struct {
	API         APIConfig
	Prefs       PrefsConfig
	Credentials CredentialsConfig
	Env         string
	LogLevel    string
	// MetricsAddr is where `prefsync sync` serves /metrics. Empty disables it.
	MetricsAddr string
}

type APIConfig struct {
	URL      string
	BasePath string
	Timeout  time.Duration
	// RateLimit is requests per second. Zero means unlimited.
	RateLimit float64
	RateBurst int
}

type PrefsConfig struct {
	Debounce time.Duration
}

type CredentialsConfig struct {
	Store           string
	File            string
	KeychainService string
	Redis           RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Load reads .env (or the given files) without overriding variables already
// set, then resolves every key against its default.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("API_BASE_PATH", "/api")
	v.SetDefault("HTTP_TIMEOUT", 60*time.Second)
	v.SetDefault("API_RATE_LIMIT", 0)
	v.SetDefault("API_RATE_BURST", 5)
	v.SetDefault("PREFS_DEBOUNCE", time.Second)
	v.SetDefault("CREDENTIAL_STORE", StoreFile)
	v.SetDefault("CREDENTIAL_FILE", credentials.DefaultCredsPath())
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY", credentials.DefaultRedisKey)
	v.SetDefault("KEYCHAIN_SERVICE", credentials.DefaultKeychainService)
	v.SetDefault("ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ADDR", "")

	cfg := &Config{
		API: APIConfig{
			URL:       v.GetString("API_URL"),
			BasePath:  v.GetString("API_BASE_PATH"),
			Timeout:   v.GetDuration("HTTP_TIMEOUT"),
			RateLimit: v.GetFloat64("API_RATE_LIMIT"),
			RateBurst: v.GetInt("API_RATE_BURST"),
		},
		Prefs: PrefsConfig{
			Debounce: v.GetDuration("PREFS_DEBOUNCE"),
		},
		Credentials: CredentialsConfig{
			Store:           strings.ToLower(v.GetString("CREDENTIAL_STORE")),
			File:            v.GetString("CREDENTIAL_FILE"),
			KeychainService: v.GetString("KEYCHAIN_SERVICE"),
			Redis: RedisConfig{
				Addr:     v.GetString("REDIS_ADDR"),
				Password: v.GetString("REDIS_PASSWORD"),
				DB:       v.GetInt("REDIS_DB"),
				Key:      v.GetString("REDIS_KEY"),
			},
		},
		Env:         v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		MetricsAddr: v.GetString("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BaseURL joins the API origin and base path.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.API.URL, "/") + "/" + strings.Trim(c.API.BasePath, "/")
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL())
	if err != nil {
		errs = append(errs, fmt.Errorf("API_URL: %w", err))
	} else if u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_URL: %q needs a scheme and host", c.API.URL))
	}

	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("API_RATE_LIMIT must not be negative"))
	}
	if c.API.RateLimit > 0 && c.API.RateBurst < 1 {
		errs = append(errs, errors.New("API_RATE_BURST must be at least 1"))
	}
	if c.Prefs.Debounce <= 0 {
		errs = append(errs, errors.New("PREFS_DEBOUNCE must be positive"))
	}

	switch c.Credentials.Store {
	case StoreFile:
		if c.Credentials.File == "" {
			errs = append(errs, errors.New("CREDENTIAL_FILE is required for the file store"))
		}
	case StoreRedis:
		if c.Credentials.Redis.Addr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	case StoreKeychain, StoreMemory, StoreEnv:
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_STORE: unknown store %q", c.Credentials.Store))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	return errors.Join(errs...)
}
