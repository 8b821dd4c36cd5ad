package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/cache"
	"github.com/Sternrassler/api-fetch-client/pkg/ratelimit"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
)

// Defaults applied by DefaultConfig.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxConcurrent = 10
	DefaultUserAgent     = "apifetch/1.0"
)

// ResponseCache stores successful GET responses. *cache.Manager implements it.
type ResponseCache interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error)
	Set(ctx context.Context, key cache.CacheKey, entry *cache.CacheEntry) error
}

// PoolConfig sizes the connection pool of the underlying transport.
type PoolConfig struct {
	// MaxConnections caps connections across all hosts.
	MaxConnections int `mapstructure:"max_connections"`

	// MaxConnectionsPerHost caps connections to a single host.
	MaxConnectionsPerHost int `mapstructure:"max_connections_per_host"`

	// KeepAlive is the TCP keep-alive period and the idle connection timeout.
	KeepAlive time.Duration `mapstructure:"keep_alive"`

	// DNSCacheTTL is how often idle pooled connections are dropped so that
	// new dials resolve host names again. Zero keeps them until KeepAlive.
	DNSCacheTTL time.Duration `mapstructure:"dns_cache_ttl"`
}

// DefaultPoolConfig returns the default pool sizing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConnections:        100,
		MaxConnectionsPerHost: 30,
		KeepAlive:             60 * time.Second,
		DNSCacheTTL:           300 * time.Second,
	}
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is prefixed to relative request URLs.
	BaseURL string

	// DefaultHeaders are sent with every request; per-request headers win.
	DefaultHeaders map[string]string

	// UserAgent is sent unless a header overrides it.
	UserAgent string

	// Timeout bounds each attempt when the request has none. Zero disables it.
	Timeout time.Duration

	// MaxConcurrent is the number of attempts allowed in flight at once.
	MaxConcurrent int

	// RateLimit configures the shared token bucket.
	RateLimit ratelimit.Config

	// Retry configures the per-request retry policy.
	Retry RetryConfig

	// Pool sizes the connection pool.
	Pool PoolConfig

	// Cache, when set, serves and stores successful GET responses.
	Cache ResponseCache

	// CacheTTL applies to cached responses without freshness headers.
	CacheTTL time.Duration

	// StatsRecorder, when set, receives one event per logical request.
	StatsRecorder stats.Recorder

	// Transport replaces the pooled transport (tests, proxies).
	Transport http.RoundTripper
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultHeaders: map[string]string{"Accept": "application/json"},
		UserAgent:      DefaultUserAgent,
		Timeout:        DefaultTimeout,
		MaxConcurrent:  DefaultMaxConcurrent,
		RateLimit:      ratelimit.DefaultConfig(),
		Retry:          DefaultRetryConfig(),
		Pool:           DefaultPoolConfig(),
		CacheTTL:       cache.DefaultTTL,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("base_url must be http or https (got %q)", c.BaseURL)
		}
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be >= 1 (got %d)", c.MaxConcurrent)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Pool.MaxConnections < 0 || c.Pool.MaxConnectionsPerHost < 0 {
		return fmt.Errorf("pool connection limits must be >= 0")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be >= 0 (got %s)", c.CacheTTL)
	}
	return nil
}
