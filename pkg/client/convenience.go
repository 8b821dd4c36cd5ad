package client

import (
	"context"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
)

// FetchJSON opens a client, GETs every URL concurrently and closes the
// client again. A nil retry uses DefaultRetryConfig; maxConcurrent < 1 uses
// DefaultMaxConcurrent.
func FetchJSON(ctx context.Context, urls []string, headers map[string]string, maxConcurrent int, retry *RetryConfig) ([]*api.Response, error) {
	cfg := DefaultConfig()
	if maxConcurrent > 0 {
		cfg.MaxConcurrent = maxConcurrent
	}
	if retry != nil {
		cfg.Retry = *retry
	}

	reqs := make([]*api.Request, len(urls))
	for i, u := range urls {
		reqs[i] = &api.Request{URL: u, Method: api.MethodGet, Headers: headers}
	}

	var out []*api.Response
	err := With(ctx, cfg, func(ctx context.Context, c *Client) error {
		var err error
		out, err = c.Batch(ctx, reqs, nil)
		return err
	})
	return out, err
}
