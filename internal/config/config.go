package config

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/client"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
	"github.com/Sternrassler/api-fetch-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// Config is the complete application configuration.
type Config struct {
	BaseURL       string            `mapstructure:"base_url"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	MaxConcurrent int               `mapstructure:"max_concurrent"`
	UserAgent     string            `mapstructure:"user_agent"`
	Headers       map[string]string `mapstructure:"headers"`
	Endpoints     map[string]string `mapstructure:"endpoints"`

	Auth      AuthConfig         `mapstructure:"auth"`
	RateLimit ratelimit.Config   `mapstructure:"rate_limit"`
	Retry     client.RetryConfig `mapstructure:"retry"`
	Pool      client.PoolConfig  `mapstructure:"pool"`
	Cache     CacheConfig        `mapstructure:"cache"`
	Stats     StatsConfig        `mapstructure:"stats"`
	Redis     RedisConfig        `mapstructure:"redis"`
	Logging   logging.Config     `mapstructure:"logging"`
	Server    ServerConfig       `mapstructure:"server"`

	// Source is the config file that was read, empty when none was found.
	Source string `mapstructure:"-"`
}

// AuthConfig holds upstream API credentials.
type AuthConfig struct {
	// APIKey is sent as X-API-Key.
	APIKey string `mapstructure:"api_key"`

	// BearerToken is sent as "Authorization: Bearer <token>".
	BearerToken string `mapstructure:"bearer_token"`
}

// CacheConfig controls the Redis response cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StatsConfig controls the Redis statistics recorder.
type StatsConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	Bucket  string        `mapstructure:"bucket"`
}

// RedisConfig contains the connection settings shared by cache and stats.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig contains the optional health/metrics listener.
type ServerConfig struct {
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Options returns go-redis options for the configured server.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Cache.Enabled || c.Stats.Enabled
}

// RequestHeaders returns the default headers sent with every request,
// including the credential headers.
func (c *Config) RequestHeaders() map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	maps.Copy(headers, c.Headers)
	if c.Auth.APIKey != "" {
		headers["X-API-Key"] = c.Auth.APIKey
	}
	if c.Auth.BearerToken != "" {
		headers["Authorization"] = "Bearer " + c.Auth.BearerToken
	}
	return headers
}

// Endpoint returns the path registered under name.
func (c *Config) Endpoint(name string) (string, bool) {
	path, ok := c.Endpoints[strings.ToLower(strings.TrimSpace(name))]
	return path, ok
}

// ResolveTarget maps an endpoint name to its path; anything else (a path or
// an absolute URL) is returned unchanged.
func (c *Config) ResolveTarget(target string) string {
	if path, ok := c.Endpoint(target); ok {
		return path
	}
	return target
}

// ClientConfig builds the fetch client configuration. Cache and stats
// backends are attached by the caller since they own a Redis connection.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.DefaultHeaders = c.RequestHeaders()
	if c.UserAgent != "" {
		cfg.UserAgent = c.UserAgent
	}
	cfg.Timeout = c.Timeout
	cfg.MaxConcurrent = c.MaxConcurrent
	cfg.RateLimit = c.RateLimit
	cfg.Retry = c.Retry
	cfg.Pool = c.Pool
	if c.Cache.TTL > 0 {
		cfg.CacheTTL = c.Cache.TTL
	}
	return cfg
}

// Validate checks the settings the client does not validate itself.
func (c *Config) Validate() error {
	if err := c.ClientConfig().Validate(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(string(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.NeedsRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("redis.addr is required when cache or stats are enabled")
	}
	switch c.Stats.Bucket {
	case "", "minute", "none":
	default:
		return fmt.Errorf("stats.bucket must be minute or none (got %q)", c.Stats.Bucket)
	}
	return nil
}
