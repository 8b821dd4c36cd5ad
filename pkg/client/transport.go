package client

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// newTransport builds the pooled transport described by cfg.
func newTransport(cfg PoolConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: cfg.KeepAlive,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnections,
		MaxIdleConnsPerHost:   cfg.MaxConnectionsPerHost,
		MaxConnsPerHost:       cfg.MaxConnectionsPerHost,
		IdleConnTimeout:       cfg.KeepAlive,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// flushIdle closes idle connections of t every interval until stop closes.
func flushIdle(t *http.Transport, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.CloseIdleConnections()
		}
	}
}

// resolveURL joins a relative request URL onto base and merges query.
// Keys in query replace keys already present in the URL.
func resolveURL(base, raw string, query url.Values) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	if !ref.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("relative url %q without base_url", raw)
		}
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parse base_url: %w", err)
		}
		// Treat base as a directory so "/v1" + "orders" keeps "/v1".
		if !strings.HasSuffix(b.Path, "/") {
			b.Path += "/"
		}
		rel := *ref
		rel.Path = strings.TrimPrefix(ref.Path, "/")
		ref = b.ResolveReference(&rel)
	}

	if ref.Scheme != "http" && ref.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", ref.Scheme)
	}
	if ref.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	if len(query) > 0 {
		q := ref.Query()
		for k, v := range query {
			q[k] = append([]string(nil), v...)
		}
		ref.RawQuery = q.Encode()
	}
	return ref.String(), nil
}
