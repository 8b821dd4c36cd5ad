package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for token bucket admission.
var (
	tokensAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apifetch_ratelimit_tokens",
		Help: "Tokens held by the rate limiter after the last acquire",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apifetch_ratelimit_waits_total",
		Help: "Total number of acquires that had to wait for tokens",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apifetch_ratelimit_wait_seconds",
		Help:    "Wait duration returned by the rate limiter",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Bucket is a token bucket safe for concurrent use.
//
// Acquire recomputes the token count and advances the bucket clock on every
// call, including calls that are told to wait and spend nothing.
type Bucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	clock  func() time.Time
}

// NewBucket creates a full bucket. Zero or negative values fall back to the
// defaults.
func NewBucket(cfg Config) *Bucket {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BurstSize < 1 {
		cfg.BurstSize = DefaultBurstSize
	}

	b := &Bucket{
		rate:  cfg.RequestsPerSecond,
		burst: float64(cfg.BurstSize),
		clock: time.Now,
	}
	b.tokens = b.burst
	b.last = b.clock()
	tokensAvailable.Set(b.tokens)
	return b
}

// WithClock replaces the time source and resets the bucket clock to it.
// Intended for tests.
func (b *Bucket) WithClock(now func() time.Time) *Bucket {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clock = now
	b.last = now()
	return b
}

// Acquire tries to take n tokens (n < 1 is treated as 1). It returns 0 when
// the tokens were taken, otherwise the time the caller should wait before the
// deficit is refilled. Tokens are not deducted when a wait is returned.
func (b *Bucket) Acquire(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	needed := float64(n)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens = math.Min(b.burst, b.tokens+elapsed*b.rate)
	b.last = now

	if b.tokens >= needed {
		b.tokens -= needed
		tokensAvailable.Set(b.tokens)
		return 0
	}

	deficit := needed - b.tokens
	wait := time.Duration(deficit / b.rate * float64(time.Second))
	tokensAvailable.Set(b.tokens)
	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())
	return wait
}

// State returns a snapshot of the stored bucket values without refilling.
func (b *Bucket) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Tokens:            b.tokens,
		Burst:             int(b.burst),
		RequestsPerSecond: b.rate,
		LastUpdate:        b.last,
	}
}
