// Package ratelimit implements token-bucket admission control for outgoing
// requests. A Bucket holds up to Burst tokens, refilled continuously at
// RequestsPerSecond; each request spends one token or is told how long to
// wait for the refill.
package ratelimit

import (
	"fmt"
	"time"
)

// Defaults for the token bucket.
const (
	// DefaultRequestsPerSecond is the sustained refill rate.
	DefaultRequestsPerSecond = 10.0

	// DefaultBurstSize is the maximum number of tokens held at once.
	DefaultBurstSize = 50
)

// Config holds the token bucket parameters.
type Config struct {
	// RequestsPerSecond is the sustained rate at which tokens are refilled.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// BurstSize is the bucket capacity (max instantaneous tokens).
	BurstSize int `mapstructure:"burst_size"`
}

// DefaultConfig returns the default rate limit configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		BurstSize:         DefaultBurstSize,
	}
}

// Validate checks that the configuration describes a usable bucket.
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be > 0 (got %g)", c.RequestsPerSecond)
	}
	if c.BurstSize < 1 {
		return fmt.Errorf("burst_size must be >= 1 (got %d)", c.BurstSize)
	}
	return nil
}

// State is a point-in-time snapshot of a bucket.
type State struct {
	// Tokens currently held, in [0, Burst].
	Tokens float64 `json:"tokens" yaml:"tokens"`

	// Burst is the bucket capacity.
	Burst int `json:"burst" yaml:"burst"`

	// RequestsPerSecond is the refill rate.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// LastUpdate is when the token count was last recomputed.
	LastUpdate time.Time `json:"last_update" yaml:"last_update"`
}

// Available reports whether at least one whole token is held.
func (s State) Available() bool {
	return s.Tokens >= 1
}

// TimeUntilToken returns how long the refill needs to produce one whole token,
// measured from LastUpdate. Returns 0 if a token is already available.
func (s State) TimeUntilToken() time.Duration {
	if s.Available() || s.RequestsPerSecond <= 0 {
		return 0
	}
	deficit := 1 - s.Tokens
	return time.Duration(deficit / s.RequestsPerSecond * float64(time.Second))
}
