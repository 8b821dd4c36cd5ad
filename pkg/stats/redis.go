package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRecorder aggregates events into Redis hashes:
//
//	<prefix>:total               cumulative counters, never expire
//	<prefix>:minute:YYYYMMDDhhmm per-minute buckets, expire after ttl
//	<prefix>:route               "METHOD path:field" counters
type RedisRecorder struct {
	rdb *redis.Client

	prefix string
	ttl    time.Duration
	bucket string
}

// RedisOption configures a RedisRecorder.
type RedisOption func(*RedisRecorder)

// WithPrefix sets the key prefix. Default "apifetch:stats".
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisRecorder) { r.prefix = strings.Trim(prefix, ":") }
}

// WithTTL sets the expiry of time-bucketed keys. Default 24h.
func WithTTL(d time.Duration) RedisOption {
	return func(r *RedisRecorder) { r.ttl = d }
}

// WithBucket selects "minute" (default) or "none".
func WithBucket(bucket string) RedisOption {
	return func(r *RedisRecorder) { r.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// NewRedisRecorder creates a recorder on top of rdb.
func NewRedisRecorder(rdb *redis.Client, opts ...RedisOption) *RedisRecorder {
	r := &RedisRecorder{
		rdb:    rdb,
		prefix: "apifetch:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements Recorder.
func (r *RedisRecorder) Record(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := ev.Field()

	pipe := r.rdb.Pipeline()
	totalKey := r.prefix + ":total"
	pipe.HIncrBy(ctx, totalKey, field, 1)
	pipe.HIncrBy(ctx, totalKey, "attempts", int64(ev.Attempts))
	pipe.HIncrBy(ctx, totalKey, "duration_ms", ev.Duration.Milliseconds())

	if r.bucket == "minute" {
		bucketKey := r.BucketKey(at)
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, bucketKey, r.ttl)
		}
	}

	if route := routeField(ev); route != "" {
		pipe.HIncrBy(ctx, r.prefix+":route", route+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// BucketKey returns the per-minute hash key for t.
func (r *RedisRecorder) BucketKey(t time.Time) string {
	return fmt.Sprintf("%s:minute:%s", r.prefix, t.UTC().Format("200601021504"))
}

// Total reads the cumulative counters back.
func (r *RedisRecorder) Total(ctx context.Context) (Counters, error) {
	vals, err := r.rdb.HGetAll(ctx, r.prefix+":total").Result()
	if err != nil {
		return Counters{}, fmt.Errorf("read stats totals: %w", err)
	}
	parse := func(k string) int64 {
		n, _ := strconv.ParseInt(vals[k], 10, 64)
		return n
	}
	return Counters{
		Successful: parse("successful"),
		Failed:     parse("failed"),
		Cached:     parse("cached"),
		Attempts:   parse("attempts"),
	}, nil
}

// ByRoute reads the per "METHOD path" outcome counters back. Attempts are
// only tracked in the totals and stay zero here.
func (r *RedisRecorder) ByRoute(ctx context.Context) (map[string]Counters, error) {
	vals, err := r.rdb.HGetAll(ctx, r.prefix+":route").Result()
	if err != nil {
		return nil, fmt.Errorf("read route stats: %w", err)
	}

	out := make(map[string]Counters)
	for field, raw := range vals {
		i := strings.LastIndex(field, ":")
		if i <= 0 {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		route := field[:i]
		c := out[route]
		switch field[i+1:] {
		case "successful":
			c.Successful += n
		case "failed":
			c.Failed += n
		case "cached":
			c.Cached += n
		default:
			continue
		}
		out[route] = c
	}
	return out, nil
}

func routeField(ev Event) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
}
