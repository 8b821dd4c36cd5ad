package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates no fresh entry exists for the key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores responses in Redis. Responses with a Vary header are kept
// per variant: a small index at "<key>:vary" lists the varying request
// headers and the body lives at "<key>:vary=<digest>".
type Manager struct {
	redis *redis.Client
}

// NewManager creates a cache manager backed by redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get returns the fresh entry for key, or ErrCacheMiss.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	base := key.String()

	// One round trip covers the common case of a response without Vary.
	vals, err := m.redis.MGet(ctx, base, varyIndexKey(base)).Result()
	if err != nil {
		errorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	data, _ := vals[0].(string)
	if index, _ := vals[1].(string); index != "" {
		data, err = m.redis.Get(ctx, variantKey(base, strings.Split(index, ","), key.Header)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			errorsTotal.WithLabelValues("get").Inc()
			return nil, fmt.Errorf("redis get: %w", err)
		}
	}
	if data == "" {
		lookupsTotal.WithLabelValues("miss").Inc()
		return nil, ErrCacheMiss
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		errorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		lookupsTotal.WithLabelValues("expired").Inc()
		return nil, ErrCacheMiss
	}

	lookupsTotal.WithLabelValues("hit").Inc()
	return &entry, nil
}

// Set stores entry until its Expires time. Expired entries and responses
// carrying "Vary: *" are not stored.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		skippedTotal.WithLabelValues("expired").Inc()
		return nil
	}
	names, ok := varyNames(entry.Headers)
	if !ok {
		skippedTotal.WithLabelValues("vary_any").Inc()
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		errorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	base := key.String()
	_, err = m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(names) == 0 {
			pipe.Set(ctx, base, data, ttl)
			pipe.Del(ctx, varyIndexKey(base))
			return nil
		}
		pipe.Set(ctx, varyIndexKey(base), strings.Join(names, ","), ttl)
		pipe.Set(ctx, variantKey(base, names, key.Header), data, ttl)
		pipe.Del(ctx, base)
		return nil
	})
	if err != nil {
		errorsTotal.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	storedBytes.Add(float64(len(data)))
	return nil
}

// Delete removes the entry for key. For a varying response only the
// variant selected by key.Header is removed along with the index.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	base := key.String()
	keys := []string{base, varyIndexKey(base)}

	index, err := m.redis.Get(ctx, varyIndexKey(base)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		errorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis get: %w", err)
	}
	if index != "" {
		keys = append(keys, variantKey(base, strings.Split(index, ","), key.Header))
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		errorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
