package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/api"
	"github.com/Sternrassler/api-fetch-client/pkg/cache"
	"github.com/Sternrassler/api-fetch-client/pkg/stats"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// call is one logical request after validation, ready for the attempt loop.
type call struct {
	req       *api.Request
	method    api.Method
	target    string
	payload   []byte
	headers   http.Header
	timeout   time.Duration
	requestID string
	started   time.Time
	logger    zerolog.Logger
}

// attemptResult is a received response and its raw body.
type attemptResult struct {
	resp *api.Response
	raw  []byte
}

func (c *Client) execute(ctx context.Context, req *api.Request) (*api.Response, error) {
	cl, err := c.prepare(req)
	if err != nil {
		c.stats.outcome(false)
		return nil, err
	}

	hc, err := c.http()
	if err != nil {
		c.stats.outcome(false)
		return nil, fmt.Errorf("open client: %w", err)
	}

	key, cacheable := c.cacheKey(cl)
	if cacheable {
		if resp := c.lookupCache(ctx, key, cl); resp != nil {
			return resp, nil
		}
	}

	if wait := c.limiter.Acquire(1); wait > 0 {
		c.stats.rateLimitedWait()
		cl.logger.Debug().Dur("delay", wait).Msg("Rate limited, waiting for token")
		if err := sleep(ctx, wait); err != nil {
			return nil, c.parked(cl, err)
		}
	}

	release, err := c.gate.Acquire(ctx)
	if err != nil {
		return nil, c.parked(cl, err)
	}
	defer release()

	attempts := c.config.Retry.MaxRetries + 1
	var (
		lastErr error
		made    int
	)
	for attempt := 0; attempt < attempts; attempt++ {
		made++
		res, err := c.attempt(ctx, hc, cl)
		if err != nil {
			lastErr = err
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			if ctx.Err() != nil || attempt+1 >= attempts {
				break
			}
			if !c.backoff(ctx, cl, attempt, ErrorClassNetwork, err) {
				lastErr = errors.Join(err, ctx.Err())
				break
			}
			continue
		}

		resp := res.resp
		resp.Attempts = made
		class := classifyStatus(resp.Status)
		if class != "" {
			errorsTotal.WithLabelValues(string(class)).Inc()
		}

		if c.config.Retry.ShouldRetryStatus(resp.Status) && attempt+1 < attempts {
			cl.logger.Warn().
				Int("status", resp.Status).
				Int("attempt", attempt).
				Str("error_class", string(class)).
				Msg("Retryable status received")
			if c.backoff(ctx, cl, attempt, class, nil) {
				continue
			}
		} else if c.config.Retry.ShouldRetryStatus(resp.Status) {
			retryExhaustedTotal.WithLabelValues(string(class)).Inc()
		}

		if resp.Success() && cacheable {
			c.storeCache(ctx, key, cl, res)
		}
		c.finish(ctx, cl, resp.Status, resp.Success(), made)
		return resp, nil
	}

	retryExhaustedTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	c.finish(ctx, cl, 0, false, made)
	cl.logger.Error().Err(lastErr).Int("attempts", made).Msg("Request failed, no response received")
	return nil, &ExhaustedRetriesError{
		Method:   string(cl.method),
		URL:      cl.target,
		Attempts: made,
		Err:      lastErr,
	}
}

// prepare validates req and resolves everything the attempt loop needs.
func (c *Client) prepare(req *api.Request) (*call, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	target, err := resolveURL(c.config.BaseURL, req.URL, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	headers := make(http.Header)
	if c.config.UserAgent != "" {
		headers.Set("User-Agent", c.config.UserAgent)
	}
	headers.Set("Accept-Encoding", acceptEncoding)
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	for k, v := range c.config.DefaultHeaders {
		headers.Set(k, v)
	}
	for k, v := range req.Headers {
		headers.Set(k, v)
	}

	requestID := headers.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		headers.Set(requestIDHeader, requestID)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.config.Timeout
	}

	method := req.EffectiveMethod()
	return &call{
		req:       req,
		method:    method,
		target:    target,
		payload:   payload,
		headers:   headers,
		timeout:   timeout,
		requestID: requestID,
		started:   time.Now(),
		logger: c.logger.With().
			Str("request_id", requestID).
			Str("method", string(method)).
			Str("url", target).
			Int("index", req.Meta.Index).
			Logger(),
	}, nil
}

// attempt performs one network call. An error means no complete response.
func (c *Client) attempt(ctx context.Context, hc *http.Client, cl *call) (*attemptResult, error) {
	if cl.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.timeout)
		defer cancel()
	}

	var body io.Reader
	if cl.payload != nil {
		body = bytes.NewReader(cl.payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(cl.method), cl.target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = cl.headers.Clone()

	cl.logger.Debug().Msg("Executing request")
	start := time.Now()
	httpResp, err := hc.Do(httpReq)
	if err != nil {
		c.observe(cl, "error", time.Since(start))
		cl.logger.Debug().Err(err).Msg("Attempt failed")
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := readBody(httpResp)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(cl, "error", elapsed)
		return nil, err
	}
	c.observe(cl, strconv.Itoa(httpResp.StatusCode), elapsed)

	resolved := cl.target
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		resolved = httpResp.Request.URL.String()
	}

	return &attemptResult{
		resp: &api.Response{
			Status:      httpResp.StatusCode,
			Body:        decodeBody(httpResp.Header, raw),
			Headers:     httpResp.Header,
			URL:         resolved,
			Elapsed:     elapsed,
			CompletedAt: time.Now(),
			Meta:        cl.req.Meta.Clone(),
			RequestID:   cl.requestID,
		},
		raw: raw,
	}, nil
}

func (c *Client) observe(cl *call, status string, elapsed time.Duration) {
	c.stats.attempt(elapsed)
	requestsTotal.WithLabelValues(string(cl.method), status).Inc()
	requestDuration.WithLabelValues(string(cl.method)).Observe(elapsed.Seconds())
}

// backoff sleeps before the next attempt. It returns false when ctx ended.
func (c *Client) backoff(ctx context.Context, cl *call, attempt int, class ErrorClass, cause error) bool {
	delay := c.config.Retry.CalculateDelay(attempt)
	c.stats.retry()
	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(delay.Seconds())

	ev := cl.logger.Warn().Int("attempt", attempt).Dur("delay", delay).Str("error_class", string(class))
	if cause != nil {
		ev = ev.Err(cause)
	}
	ev.Msg("Retrying request")

	return sleep(ctx, delay) == nil
}

// parked handles a context that ended while the request waited for a token
// or a gate slot.
func (c *Client) parked(cl *call, err error) error {
	c.finish(context.Background(), cl, 0, false, 0)
	cl.logger.Debug().Err(err).Msg("Request cancelled before dispatch")
	return fmt.Errorf("%w: %w", ErrContextCancelled, err)
}

// finish records the logical outcome.
func (c *Client) finish(ctx context.Context, cl *call, status int, success bool, attempts int) {
	c.stats.outcome(success)
	c.record(ctx, cl, stats.Event{
		Status:   status,
		Success:  success,
		Attempts: attempts,
	})
}

func (c *Client) record(ctx context.Context, cl *call, ev stats.Event) {
	if c.config.StatsRecorder == nil {
		return
	}
	ev.Method = string(cl.method)
	if u, err := url.Parse(cl.target); err == nil {
		ev.Path = u.Path
	}
	ev.Duration = time.Since(cl.started)
	ev.At = time.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.config.StatsRecorder.Record(ctx, ev); err != nil {
		cl.logger.Warn().Err(err).Msg("Failed to record request stats")
	}
}

func (c *Client) cacheKey(cl *call) (cache.CacheKey, bool) {
	if c.config.Cache == nil || cl.req.NoCache || cl.method != api.MethodGet {
		return cache.CacheKey{}, false
	}
	key, err := cache.KeyFromRequest(string(cl.method), cl.target, cl.headers)
	if err != nil {
		return cache.CacheKey{}, false
	}
	return key, true
}

// lookupCache returns a cached response, or nil on a miss or cache error.
func (c *Client) lookupCache(ctx context.Context, key cache.CacheKey, cl *call) *api.Response {
	entry, err := c.config.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			cl.logger.Warn().Err(err).Msg("Cache get error")
		}
		return nil
	}

	c.stats.cacheHit()
	c.record(ctx, cl, stats.Event{Status: entry.StatusCode, Success: true, Cached: true})
	cl.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Bool("cached", true).Msg("Cache hit")

	return &api.Response{
		Status:      entry.StatusCode,
		Body:        decodeBody(entry.Headers, entry.Data),
		Headers:     entry.Headers,
		URL:         entry.URL,
		Elapsed:     time.Since(cl.started),
		CompletedAt: time.Now(),
		Meta:        cl.req.Meta.Clone(),
		Cached:      true,
		RequestID:   cl.requestID,
	}
}

func (c *Client) storeCache(ctx context.Context, key cache.CacheKey, cl *call, res *attemptResult) {
	entry := cache.NewEntry(res.resp.Status, res.resp.Headers, res.resp.URL, res.raw, c.config.CacheTTL)
	// The stored body is already decoded.
	entry.Headers.Del("Content-Encoding")
	entry.Headers.Del("Content-Length")
	if err := c.config.Cache.Set(ctx, key, entry); err != nil {
		cl.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	cl.logger.Debug().Str("key", key.String()).Dur("ttl", entry.TTL()).Msg("Cached response")
}
