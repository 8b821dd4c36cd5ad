package client

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", config.BaseDelay)
	}
	if config.MaxDelay != 60*time.Second {
		t.Errorf("MaxDelay = %v, want 60s", config.MaxDelay)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
	for _, status := range []int{429, 500, 502, 503, 504} {
		if !config.ShouldRetryStatus(status) {
			t.Errorf("status %d should be retryable by default", status)
		}
	}

	// The default must not alias the package-level list.
	config.RetryOnStatus[0] = 418
	if DefaultRetryStatuses[0] != 429 {
		t.Error("DefaultRetryConfig shares RetryOnStatus with DefaultRetryStatuses")
	}
}

func TestCalculateDelay(t *testing.T) {
	config := DefaultRetryConfig()
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second, // capped, not 64s
	}

	for attempt, w := range want {
		if got := config.CalculateDelay(attempt); got != w {
			t.Errorf("CalculateDelay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestCalculateDelay_MonotonicAndCapped(t *testing.T) {
	config := RetryConfig{BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second, BackoffMultiplier: 1.5}

	prev := time.Duration(0)
	for attempt := 0; attempt < 2000; attempt++ {
		got := config.CalculateDelay(attempt)
		if got < prev {
			t.Fatalf("CalculateDelay(%d) = %v < previous %v", attempt, got, prev)
		}
		if got > config.MaxDelay {
			t.Fatalf("CalculateDelay(%d) = %v exceeds max", attempt, got)
		}
		prev = got
	}
	if prev != config.MaxDelay {
		t.Errorf("large attempts should yield MaxDelay, got %v", prev)
	}
}

func TestCalculateDelay_EdgeCases(t *testing.T) {
	config := DefaultRetryConfig()
	if got := config.CalculateDelay(-3); got != time.Second {
		t.Errorf("negative attempt = %v, want base delay", got)
	}

	huge := RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute, BackoffMultiplier: math.MaxFloat64}
	if got := huge.CalculateDelay(5); got != time.Minute {
		t.Errorf("overflowing delay = %v, want max", got)
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RetryConfig)
		wantErr bool
	}{
		{"default", func(*RetryConfig) {}, false},
		{"zero retries", func(c *RetryConfig) { c.MaxRetries = 0 }, false},
		{"negative retries", func(c *RetryConfig) { c.MaxRetries = -1 }, true},
		{"negative base", func(c *RetryConfig) { c.BaseDelay = -time.Second }, true},
		{"max below base", func(c *RetryConfig) { c.MaxDelay = 500 * time.Millisecond }, true},
		{"zero multiplier", func(c *RetryConfig) { c.BackoffMultiplier = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultRetryConfig()
			tt.mutate(&config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	if err := sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("sleep returned %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("sleep returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleep on cancelled ctx = %v, want context.Canceled", err)
	}
	if err := sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("zero sleep on cancelled ctx = %v, want context.Canceled", err)
	}
}
