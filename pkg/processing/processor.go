// Package processing hands the bodies of fetched responses to caller code.
package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/logging"
)

// DefaultBatchSize is used when Process is called with batchSize < 1.
const DefaultBatchSize = 100

// Func transforms one response body.
type Func[T any] func(body any) (T, error)

// Counts reports what a Processor has done so far.
type Counts struct {
	Processed int `json:"processed_count" yaml:"processed_count"`
	Errors    int `json:"error_count" yaml:"error_count"`
}

// Processor applies a Func to successful responses. Failed responses, Func
// errors and Func panics are counted as errors and skipped.
type Processor[T any] struct {
	mu     sync.Mutex
	counts Counts
}

// New returns a processor with zero counts.
func New[T any]() *Processor[T] {
	return &Processor[T]{}
}

// Process runs fn over responses in chunks of batchSize and returns the
// results of the successful calls in input order. It stops between chunks
// when ctx is done and returns what it has together with ctx.Err().
func (p *Processor[T]) Process(ctx context.Context, responses []*api.Response, fn Func[T], batchSize int) ([]T, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	logger := logging.NewLogger(logging.ComponentProcessing)
	logger.Info().Int("responses", len(responses)).Int("batch_size", batchSize).Msg("Processing responses")

	out := make([]T, 0, len(responses))
	for start := 0; start < len(responses); start += batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := min(start+batchSize, len(responses))
		for _, resp := range responses[start:end] {
			if !resp.Success() {
				status := 0
				if resp != nil {
					status = resp.Status
				}
				logger.Warn().Int("status", status).Msg("Skipping failed response")
				p.add(0, 1)
				continue
			}

			v, err := p.apply(fn, resp.Body)
			if err != nil {
				logger.Error().Err(err).Str("url", resp.URL).Msg("Error processing response")
				p.add(0, 1)
				continue
			}
			out = append(out, v)
			p.add(1, 0)
		}
		logger.Debug().Int("done", end).Int("total", len(responses)).Msg("Processing progress")
	}

	c := p.Counts()
	logger.Info().Int("processed", c.Processed).Int("errors", c.Errors).Msg("Response processing complete")
	return out, nil
}

func (p *Processor[T]) apply(fn Func[T], body any) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(body)
}

func (p *Processor[T]) add(processed, errs int) {
	p.mu.Lock()
	p.counts.Processed += processed
	p.counts.Errors += errs
	p.mu.Unlock()
}

// Counts returns the cumulative counts.
func (p *Processor[T]) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}
