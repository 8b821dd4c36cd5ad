package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the response cache.
var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"}) // hit, miss, expired

	storedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apifetch_cache_stored_bytes_total",
		Help: "Bytes written to the response cache",
	})

	skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_cache_skipped_total",
		Help: "Responses not stored by reason",
	}, []string{"reason"}) // expired, vary_any

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apifetch_cache_errors_total",
		Help: "Response cache operation errors",
	}, []string{"operation"}) // get, set, delete
)
