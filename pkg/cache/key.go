package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// credentialHeaders decide whose response a cache entry is.
var credentialHeaders = []string{"Authorization", "X-API-Key", "Cookie"}

// CacheKey identifies a cached response.
type CacheKey struct {
	// Method is the HTTP method (only GET responses are cached by the client)
	Method string

	// URL is the resolved request URL without query string
	URL string

	// QueryParams are the query parameters
	QueryParams url.Values

	// Identity separates callers presenting different credentials.
	// Empty for anonymous requests.
	Identity string

	// Header holds the outgoing request headers. The Manager reads it to
	// pick the variant of a response that carries a Vary header. It is not
	// part of String.
	Header http.Header
}

// KeyFromURL builds an anonymous key from a fully resolved URL.
func KeyFromURL(method, rawURL string) (CacheKey, error) {
	return KeyFromRequest(method, rawURL, nil)
}

// KeyFromRequest builds a key from a resolved URL and the headers that will
// be sent with it. Credential headers become the key's Identity.
func KeyFromRequest(method, rawURL string, header http.Header) (CacheKey, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CacheKey{}, fmt.Errorf("parse url: %w", err)
	}
	query := u.Query()
	u.RawQuery = ""
	u.Fragment = ""
	return CacheKey{
		Method:      method,
		URL:         u.String(),
		QueryParams: query,
		Identity:    IdentityOf(header),
		Header:      header,
	}, nil
}

// IdentityOf returns a short digest of the credential headers in h, or ""
// when there are none.
func IdentityOf(h http.Header) string {
	sum := sha256.New()
	found := false
	for _, name := range credentialHeaders {
		for _, v := range h.Values(name) {
			found = true
			fmt.Fprintf(sum, "%s\x00%s\x00", name, v)
		}
	}
	if !found {
		return ""
	}
	return hex.EncodeToString(sum.Sum(nil))[:16]
}

// String generates a deterministic cache key string.
// Format: apifetch:METHOD[:id=IDENTITY]:host/path:query1=a,b:query2=c
//
// Example:
//
//	apifetch:GET:id=9f86d081884c7d65:api.example.com/orders:page=2:size=50
func (k CacheKey) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}
	parts := []string{"apifetch", method}
	if k.Identity != "" {
		parts = append(parts, "id="+k.Identity)
	}

	target := strings.TrimPrefix(strings.TrimPrefix(k.URL, "https://"), "http://")
	target = strings.Trim(target, "/")
	if target != "" {
		parts = append(parts, target)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// varyNames returns the canonical request header names a response varies
// on, sorted. ok is false for "Vary: *". Accept-Encoding is ignored since
// bodies are stored decoded.
func varyNames(h http.Header) (names []string, ok bool) {
	seen := make(map[string]bool)
	for _, line := range h.Values("Vary") {
		for _, field := range strings.Split(line, ",") {
			name := http.CanonicalHeaderKey(strings.TrimSpace(field))
			switch {
			case name == "*":
				return nil, false
			case name == "", name == "Accept-Encoding", seen[name]:
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, true
}

// variantKey is the storage key of the response variant selected by the
// request headers named in names.
func variantKey(base string, names []string, header http.Header) string {
	sum := sha256.New()
	for _, name := range names {
		fmt.Fprintf(sum, "%s\x00%s\x00", name, strings.Join(header.Values(name), ","))
	}
	return base + ":vary=" + hex.EncodeToString(sum.Sum(nil))[:16]
}

func varyIndexKey(base string) string {
	return base + ":vary"
}
