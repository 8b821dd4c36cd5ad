// Package batch fans a list of requests out concurrently and collects
// exactly one response per request, in submission order.
package batch

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var batchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "apifetch_batch_requests_total",
	Help: "Batch items by outcome",
}, []string{"outcome"})

// Executor runs one logical request. *client.Client implements it.
type Executor interface {
	Do(ctx context.Context, req *api.Request) (*api.Response, error)
}

// ProgressFunc is called after every completed item with the number of
// completed items and the batch size. Calls come from a single goroutine.
type ProgressFunc func(completed, total int)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProgress sets the progress callback. A nil fn is ignored.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.progress = fn
		}
	}
}

// WithProgressLogInterval sets the minimum spacing of progress log lines.
func WithProgressLogInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.logEvery = d }
}

// Coordinator dispatches batches through an Executor.
type Coordinator struct {
	exec     Executor
	progress ProgressFunc
	logEvery time.Duration
}

// NewCoordinator creates a coordinator.
func NewCoordinator(exec Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		exec:     exec,
		logEvery: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// result is one finished item.
type result struct {
	resp    *api.Response
	outcome string
}

// Submit runs every request concurrently and returns len(reqs) responses
// ordered like reqs. Each request's Meta.Index is set to its position.
// Requests that fail to produce a response yield a placeholder with status
// 0 and an {"error": ...} body. The shared rate limiter and gate of the
// executor bound the actual parallelism.
func (c *Coordinator) Submit(ctx context.Context, reqs []*api.Request) []*api.Response {
	total := len(reqs)
	if total == 0 {
		return []*api.Response{}
	}

	logger := logging.NewLogger(logging.ComponentBatch)
	start := time.Now()
	logger.Info().Int("total", total).Msg("Starting batch")

	results := make(chan result, total)
	for i, req := range reqs {
		go c.run(ctx, i, req, results)
	}

	out := make([]*api.Response, 0, total)
	failed := 0
	progressLog := rate.Sometimes{Interval: c.logEvery}
	for completed := 1; completed <= total; completed++ {
		r := <-results
		batchRequestsTotal.WithLabelValues(r.outcome).Inc()
		if !r.resp.Success() {
			failed++
		}
		out = append(out, r.resp)

		if c.progress != nil {
			c.progress(completed, total)
		}
		progressLog.Do(func() {
			logger.Info().
				Int("completed", completed).
				Int("total", total).
				Float64("progress_pct", float64(completed)/float64(total)*100).
				Msg("Batch progress")
		})
	}

	slices.SortStableFunc(out, func(a, b *api.Response) int {
		return a.Meta.Index - b.Meta.Index
	})

	logger.Info().
		Int("total", total).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Batch complete")

	return out
}

// run executes request i and always sends exactly one result.
func (c *Coordinator) run(ctx context.Context, i int, req *api.Request, results chan<- result) {
	logger := logging.NewLogger(logging.ComponentBatch)

	var indexed *api.Request
	if req != nil {
		indexed = req.Clone()
		indexed.Meta.Index = i
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Int("index", i).Interface("panic", p).Msg("Batch item panicked")
			results <- result{resp: placeholder(indexed, i, fmt.Errorf("panic: %v", p)), outcome: "panic"}
		}
	}()

	if indexed == nil {
		results <- result{resp: placeholder(nil, i, fmt.Errorf("request is nil")), outcome: "failed"}
		return
	}

	resp, err := c.exec.Do(ctx, indexed)
	if err == nil && resp == nil {
		err = fmt.Errorf("executor returned no response")
	}
	if err != nil {
		logger.Error().Err(err).Int("index", i).Str("url", indexed.URL).Msg("Batch item failed")
		results <- result{resp: placeholder(indexed, i, err), outcome: "failed"}
		return
	}

	// Index is authoritative even if the executor rewrote metadata.
	resp.Meta.Index = i
	outcome := "success"
	if !resp.Success() {
		outcome = "failed"
	}
	results <- result{resp: resp, outcome: outcome}
}

func placeholder(req *api.Request, i int, err error) *api.Response {
	resp := api.Failed(req, err)
	resp.Meta.Index = i
	return resp
}
