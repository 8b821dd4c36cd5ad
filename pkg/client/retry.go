package client

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apifetch_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_retry_exhausted_total",
		Help: "Total number of requests whose attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the retry policy.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `mapstructure:"max_retries"`

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration `mapstructure:"base_delay"`

	// MaxDelay caps every computed delay.
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// BackoffMultiplier is the growth factor between consecutive delays.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`

	// RetryOnStatus lists the HTTP status codes that trigger a retry.
	RetryOnStatus []int `mapstructure:"retry_on_status"`
}

// DefaultRetryStatuses are the statuses retried by default.
var DefaultRetryStatuses = []int{429, 500, 502, 503, 504}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		RetryOnStatus:     slices.Clone(DefaultRetryStatuses),
	}
}

// Validate checks the retry policy.
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", r.MaxRetries)
	}
	if r.BaseDelay < 0 {
		return fmt.Errorf("base_delay must be >= 0 (got %s)", r.BaseDelay)
	}
	if r.MaxDelay < r.BaseDelay {
		return fmt.Errorf("max_delay must be >= base_delay (got %s < %s)", r.MaxDelay, r.BaseDelay)
	}
	if r.BackoffMultiplier <= 0 {
		return fmt.Errorf("backoff_multiplier must be > 0 (got %g)", r.BackoffMultiplier)
	}
	return nil
}

// CalculateDelay returns min(BaseDelay * BackoffMultiplier^attempt, MaxDelay).
// There is no jitter: the result depends only on the policy and attempt.
func (r RetryConfig) CalculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(r.BaseDelay) * math.Pow(r.BackoffMultiplier, float64(attempt))
	if math.IsInf(delay, 0) || math.IsNaN(delay) || delay > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetryStatus reports whether status is in RetryOnStatus.
func (r RetryConfig) ShouldRetryStatus(status int) bool {
	return slices.Contains(r.RetryOnStatus, status)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
