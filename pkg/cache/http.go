package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when neither Expires nor max-age is present
	DefaultTTL = 5 * time.Minute
)

// NewEntry builds a cache entry from the parts of a received response.
// defaultTTL is used when the headers carry no freshness information; a
// non-positive value means DefaultTTL.
func NewEntry(status int, headers http.Header, resolvedURL string, body []byte, defaultTTL time.Duration) *CacheEntry {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	now := time.Now()
	return &CacheEntry{
		Data:       append([]byte(nil), body...),
		StatusCode: status,
		Headers:    headers.Clone(),
		URL:        resolvedURL,
		Expires:    parseExpires(headers, now, defaultTTL),
		CachedAt:   now,
	}
}

// parseExpires derives the expiry from Cache-Control max-age, then Expires,
// then the default TTL. no-store/no-cache yield an already expired time.
func parseExpires(headers http.Header, now time.Time, defaultTTL time.Duration) time.Time {
	if cc := headers.Get("Cache-Control"); cc != "" {
		for _, directive := range strings.Split(cc, ",") {
			directive = strings.ToLower(strings.TrimSpace(directive))
			if directive == "no-store" || directive == "no-cache" {
				return now
			}
			if v, ok := strings.CutPrefix(directive, "max-age="); ok {
				if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
					return now.Add(time.Duration(secs) * time.Second)
				}
			}
		}
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(defaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(defaultTTL)
	}

	if expires.Before(now) {
		// Already expired - use minimal TTL
		return now
	}

	return expires
}
