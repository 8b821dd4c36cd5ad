// Package client provides the HTTP fetch engine: a single request executor
// with rate limiting, bounded concurrency, retry with backoff and an
// optional response cache, plus batch and pagination entry points.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/batch"
	"github.com/Sternrassler/api-fetch-client/pkg/gate"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
	"github.com/Sternrassler/api-fetch-client/pkg/pagination"
	"github.com/Sternrassler/api-fetch-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request attempts.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_requests_total",
		Help: "Total request attempts by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apifetch_request_duration_seconds",
		Help:    "Request attempt duration in seconds by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_errors_total",
		Help: "Total failed attempts by class",
	}, []string{"class"})
)

// Client is the fetch engine. It is safe for concurrent use.
type Client struct {
	config  Config
	limiter *ratelimit.Bucket
	gate    *gate.Gate
	logger  zerolog.Logger
	stats   statsCounter

	mu         sync.Mutex
	httpClient *http.Client
	transport  *http.Transport
	stopFlush  chan struct{}
}

// New creates a client. The transport is created on Open or on first use.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config:  cfg,
		limiter: ratelimit.NewBucket(cfg.RateLimit),
		gate:    gate.New(cfg.MaxConcurrent),
		logger:  logging.NewLogger(logging.ComponentClient),
	}, nil
}

// With runs fn with an open client and closes it on every exit path.
func With(ctx context.Context, cfg Config, fn func(context.Context, *Client) error) error {
	c, err := New(cfg)
	if err != nil {
		return err
	}
	if err := c.Open(); err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

// Open creates the transport. Calling it on an open client is a no-op.
func (c *Client) Open() error {
	_, err := c.http()
	return err
}

func (c *Client) http() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient != nil {
		return c.httpClient, nil
	}

	rt := c.config.Transport
	if rt == nil {
		c.transport = newTransport(c.config.Pool)
		rt = c.transport
		if c.config.Pool.DNSCacheTTL > 0 {
			c.stopFlush = make(chan struct{})
			go flushIdle(c.transport, c.config.Pool.DNSCacheTTL, c.stopFlush)
		}
	}
	c.httpClient = &http.Client{Transport: rt}

	c.logger.Debug().
		Int("max_concurrent", c.config.MaxConcurrent).
		Float64("requests_per_second", c.config.RateLimit.RequestsPerSecond).
		Int("burst", c.config.RateLimit.BurstSize).
		Msg("Client opened")
	return c.httpClient, nil
}

// Close releases the transport. It is idempotent; a later request reopens it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.httpClient == nil {
		return nil
	}
	if c.stopFlush != nil {
		close(c.stopFlush)
		c.stopFlush = nil
	}
	if c.transport != nil {
		c.transport.CloseIdleConnections()
		c.transport = nil
	}
	c.httpClient = nil

	c.logger.Debug().Msg("Client closed")
	return nil
}

// Do executes one logical request. It returns an error only when the request
// is invalid, the context ends while the request is parked, or every attempt
// failed at the transport level (*ExhaustedRetriesError). Error statuses are
// returned as unsuccessful responses.
func (c *Client) Do(ctx context.Context, req *api.Request) (*api.Response, error) {
	return c.execute(ctx, req)
}

// Get performs a GET request for a URL or path relative to the base URL.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*api.Response, error) {
	req := api.NewRequest(rawURL)
	req.Query = query
	return c.Do(ctx, req)
}

// Batch runs reqs concurrently and returns one response per request in
// submission order. Per-request failures become placeholder responses.
func (c *Client) Batch(ctx context.Context, reqs []*api.Request, progress batch.ProgressFunc) ([]*api.Response, error) {
	if err := c.Open(); err != nil {
		return nil, fmt.Errorf("open client: %w", err)
	}
	return batch.NewCoordinator(c, batch.WithProgress(progress)).Submit(ctx, reqs), nil
}

// Paginate fetches pages of base sequentially until opts.Continue says stop.
func (c *Client) Paginate(ctx context.Context, base *api.Request, opts pagination.Options) ([]*api.Response, error) {
	if err := c.Open(); err != nil {
		return nil, fmt.Errorf("open client: %w", err)
	}
	return pagination.New(c, opts).Fetch(ctx, base)
}

// Stats returns a snapshot of the aggregate counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// ResetStats clears the aggregate counters and the gate's peak.
func (c *Client) ResetStats() {
	c.stats.reset()
	c.gate.ResetPeak()
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Pressure is a point-in-time view of admission control.
type Pressure struct {
	Limiter ratelimit.State `json:"limiter" yaml:"limiter"`
	Gate    gate.State      `json:"gate" yaml:"gate"`
}

// Pressure reports the token bucket and concurrency gate as they are now.
func (c *Client) Pressure() Pressure {
	return Pressure{
		Limiter: c.limiter.State(),
		Gate:    c.gate.State(),
	}
}
