// Package metrics exposes the Prometheus registry used by the fetch client.
// Metrics are defined in their owning packages (client, ratelimit, gate,
// cache, batch) and registered on the default registry through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every promauto metric lands in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer for Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler exposing all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - apifetch_requests_total{method, status} (Counter): attempts by method and HTTP status ("error" for transport failures)
//   - apifetch_request_duration_seconds{method} (Histogram): attempt duration
//   - apifetch_errors_total{class} (Counter): failed attempts by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - apifetch_retries_total{error_class} (Counter): retries by error class
//   - apifetch_retry_backoff_seconds{error_class} (Histogram): backoff slept before a retry
//   - apifetch_retry_exhausted_total{error_class} (Counter): logical requests that ran out of attempts
//
// Rate Limit Metrics (pkg/ratelimit):
//   - apifetch_ratelimit_tokens (Gauge): tokens left after the last acquisition
//   - apifetch_ratelimit_waits_total (Counter): acquisitions that had to wait
//   - apifetch_ratelimit_wait_seconds (Histogram): wait handed out by the bucket
//
// Concurrency Metrics (pkg/gate):
//   - apifetch_gate_in_use (Gauge): requests currently holding a slot
//   - apifetch_gate_waiting (Gauge): requests queued for a slot
//
// Cache Metrics (pkg/cache):
//   - apifetch_cache_lookups_total{result} (Counter): hit, miss, expired
//   - apifetch_cache_stored_bytes_total (Counter)
//   - apifetch_cache_skipped_total{reason} (Counter)
//   - apifetch_cache_errors_total{operation} (Counter)
//
// Batch Metrics (pkg/batch):
//   - apifetch_batch_requests_total{outcome} (Counter): batch items by outcome (success, failed, panic)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(apifetch_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(apifetch_cache_lookups_total[5m]))
//
//   # Retry pressure
//   sum by (error_class) (rate(apifetch_retries_total[5m]))
//
//   # P95 Attempt Latency
//   histogram_quantile(0.95, rate(apifetch_request_duration_seconds_bucket[5m]))
