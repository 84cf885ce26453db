// Package config loads and validates the gateway's external
// configuration: a YAML file merged with an AI_PROXY_-prefixed
// environment overlay. The core never sees a raw file or environment
// variable — only the domain.ServerConfig this package produces.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nulzo/model-router-api/internal/domain"
	"github.com/spf13/viper"
)

// RedisConfig selects the optional distributed cache backend.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalyticsConfig selects the optional SQLite request-log sink.
type AnalyticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// Config is what Load() returns: the immutable domain.ServerConfig
// plus the two ambient-stack backends, converted from the decoded
// fileConfig.
type Config struct {
	Server    domain.ServerConfig
	Redis     RedisConfig
	Analytics AnalyticsConfig
}

type fileProvider struct {
	ID         string            `mapstructure:"id"`
	Type       string            `mapstructure:"type"`
	APIKey     string            `mapstructure:"api_key"`
	BaseURL    string            `mapstructure:"base_url"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	MaxRetries int               `mapstructure:"max_retries"`
	Enabled    bool              `mapstructure:"enabled"`
	Extra      map[string]string `mapstructure:"extra"`
}

type fileRoute struct {
	ModelID    string `mapstructure:"model_id"`
	ProviderID string `mapstructure:"provider_id"`
}

type fileConfig struct {
	Server struct {
		Host            string   `mapstructure:"host"`
		Port            int      `mapstructure:"port"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
		MaxRequestBytes int64    `mapstructure:"max_request_bytes"`
		APIKeys         []string `mapstructure:"api_keys"`
	} `mapstructure:"server"`
	Limits struct {
		MaxTokensCeiling int `mapstructure:"max_tokens_ceiling"`
	} `mapstructure:"limits"`
	RateLimit struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Providers []fileProvider  `mapstructure:"providers"`
	Routes    []fileRoute     `mapstructure:"routes"`
}

// Load reads config.yaml (search paths ".", "./config"), overlays
// AI_PROXY_-prefixed environment variables, loads a local .env file
// first in non-production environments for developer convenience,
// resolves any "ENV:VARNAME" API key sentinel against the process
// environment, and returns the result. The validate struct tags on
// domain.ProviderConfig are not checked here.
func Load(env string) (*Config, error) {
	if env != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_request_bytes", 1<<20)
	v.SetDefault("limits.max_tokens_ceiling", 8192)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.dsn", "file:gateway.db?_journal_mode=WAL")

	v.SetEnvPrefix("AI_PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	providers := make([]domain.ProviderConfig, 0, len(fc.Providers))
	for _, p := range fc.Providers {
		providers = append(providers, domain.ProviderConfig{
			ID:         p.ID,
			Type:       p.Type,
			APIKey:     resolveAPIKey(v, p.APIKey),
			BaseURL:    p.BaseURL,
			Timeout:    p.Timeout,
			MaxRetries: p.MaxRetries,
			Enabled:    p.Enabled,
			Extra:      p.Extra,
		})
	}

	routes := make([]domain.RouteConfig, 0, len(fc.Routes))
	for _, r := range fc.Routes {
		routes = append(routes, domain.RouteConfig{ModelID: r.ModelID, ProviderID: r.ProviderID})
	}

	cfg := &Config{
		Server: domain.ServerConfig{
			Host:             fc.Server.Host,
			Port:             fc.Server.Port,
			RequestTimeout:   fc.Server.RequestTimeout,
			MaxRequestBytes:  fc.Server.MaxRequestBytes,
			MaxTokensCeiling: fc.Limits.MaxTokensCeiling,
			APIKeys:          fc.Server.APIKeys,
			RateLimit: domain.RateLimitConfig{
				RequestsPerSecond: fc.RateLimit.RequestsPerSecond,
				Burst:             fc.RateLimit.Burst,
			},
			Providers: providers,
			Routes:    routes,
		},
		Redis:     fc.Redis,
		Analytics: fc.Analytics,
	}
	return cfg, nil
}

// resolveAPIKey swaps an "ENV:VARNAME" sentinel for the named
// environment variable, checking the real process environment before
// falling back to viper (which may have picked it up from another
// source, e.g. a .env file).
func resolveAPIKey(v *viper.Viper, raw string) string {
	if !strings.HasPrefix(raw, "ENV:") {
		return raw
	}
	envVar := strings.TrimPrefix(raw, "ENV:")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return v.GetString(envVar)
}
