// Package cache provides a Redis-backed response cache for idempotent requests.
//
// Successful GET responses are stored as raw bodies plus status and headers,
// keyed by method, resolved URL, sorted query parameters and a digest of the
// caller's credential headers (Authorization, X-API-Key, Cookie), so one
// identity never reads another's response. Responses with a Vary header are
// stored per variant of the named request headers; "Vary: *" is not cached. Entries expire
// according to the upstream Expires or Cache-Control max-age header, or a
// caller-supplied default TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key, err := cache.KeyFromRequest("GET", "https://api.example.com/orders?status=open", req.Header)
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from upstream, then:
//		entry = cache.NewEntry(200, headers, finalURL, body, 5*time.Minute)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - apifetch_cache_lookups_total{result} - hit, miss or expired
//   - apifetch_cache_stored_bytes_total - Bytes written
//   - apifetch_cache_skipped_total{reason} - Responses not stored (expired, vary_any)
//   - apifetch_cache_errors_total{operation} - Cache operation errors
//
// Cache failures are never fatal for the caller: the client logs them and
// falls through to the network.
package cache
