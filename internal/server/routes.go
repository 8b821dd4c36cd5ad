package server

import (
	"net/http"

	"github.com/Sternrassler/api-fetch-client/pkg/metrics"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/stats", s.handleStats)

	// promauto metrics from client, ratelimit, gate, cache and batch
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
}
