package client

import (
	"sync"
	"time"
)

// Stats is a snapshot of the client's aggregate counters.
//
// TotalRequests counts network attempts, including the ones that failed at
// the transport level. Successful and Failed count logical requests by their
// final outcome. Retried counts every retry, whether it followed a retryable
// status or a transport failure.
type Stats struct {
	TotalRequests     int64         `json:"total_requests" yaml:"total_requests"`
	Successful        int64         `json:"successful" yaml:"successful"`
	Failed            int64         `json:"failed" yaml:"failed"`
	Retried           int64         `json:"retried" yaml:"retried"`
	RateLimitedWaits  int64         `json:"rate_limited_waits" yaml:"rate_limited_waits"`
	CacheHits         int64         `json:"cache_hits" yaml:"cache_hits"`
	TotalResponseTime time.Duration `json:"total_response_time" yaml:"total_response_time"`
}

// SuccessRate returns the share of successful logical requests in percent.
func (s Stats) SuccessRate() float64 {
	done := s.Successful + s.Failed
	if done == 0 {
		return 0
	}
	return float64(s.Successful) / float64(done) * 100
}

// AverageResponseTime returns the mean duration of a network attempt.
func (s Stats) AverageResponseTime() time.Duration {
	if s.TotalRequests == 0 {
		return 0
	}
	return s.TotalResponseTime / time.Duration(s.TotalRequests)
}

// statsCounter accumulates Stats under a mutex.
type statsCounter struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCounter) attempt(elapsed time.Duration) {
	c.mu.Lock()
	c.s.TotalRequests++
	c.s.TotalResponseTime += elapsed
	c.mu.Unlock()
}

func (c *statsCounter) outcome(success bool) {
	c.mu.Lock()
	if success {
		c.s.Successful++
	} else {
		c.s.Failed++
	}
	c.mu.Unlock()
}

func (c *statsCounter) retry() {
	c.mu.Lock()
	c.s.Retried++
	c.mu.Unlock()
}

func (c *statsCounter) rateLimitedWait() {
	c.mu.Lock()
	c.s.RateLimitedWaits++
	c.mu.Unlock()
}

func (c *statsCounter) cacheHit() {
	c.mu.Lock()
	c.s.CacheHits++
	c.s.Successful++
	c.mu.Unlock()
}

func (c *statsCounter) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

func (c *statsCounter) reset() {
	c.mu.Lock()
	c.s = Stats{}
	c.mu.Unlock()
}
