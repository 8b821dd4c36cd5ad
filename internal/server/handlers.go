package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sternrassler/api-fetch-client/pkg/gate"
)

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatsResponse is the body served on /stats.
type StatsResponse struct {
	TotalRequests       int64   `json:"total_requests"`
	Successful          int64   `json:"successful"`
	Failed              int64   `json:"failed"`
	Retried             int64   `json:"retried"`
	RateLimitedWaits    int64   `json:"rate_limited_waits"`
	CacheHits           int64   `json:"cache_hits"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time_seconds"`
	TotalResponseTime   float64 `json:"total_response_time_seconds"`

	Limiter LimiterResponse `json:"limiter"`
	Gate    gate.State      `json:"gate"`
}

// LimiterResponse is the token bucket part of StatsResponse.
type LimiterResponse struct {
	Tokens            float64 `json:"tokens"`
	Burst             int     `json:"burst"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Available         bool    `json:"available"`
	NextTokenSeconds  float64 `json:"next_token_seconds"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.opts.Checkers))
	status := "healthy"
	for name, checker := range s.opts.Checkers {
		if err := checker.CheckHealth(ctx); err != nil {
			s.logger.Warn().Err(err).Str("check", name).Msg("Health check failed")
			checks[name] = "unhealthy"
			status = "unhealthy"
			continue
		}
		checks[name] = "healthy"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:    status,
		Version:   s.opts.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.opts.Stats == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "No client attached")
		return
	}

	st := s.opts.Stats.Stats()
	p := s.opts.Stats.Pressure()
	writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests:       st.TotalRequests,
		Successful:          st.Successful,
		Failed:              st.Failed,
		Retried:             st.Retried,
		RateLimitedWaits:    st.RateLimitedWaits,
		CacheHits:           st.CacheHits,
		SuccessRate:         st.SuccessRate(),
		AverageResponseTime: st.AverageResponseTime().Seconds(),
		TotalResponseTime:   st.TotalResponseTime.Seconds(),
		Limiter: LimiterResponse{
			Tokens:            p.Limiter.Tokens,
			Burst:             p.Limiter.Burst,
			RequestsPerSecond: p.Limiter.RequestsPerSecond,
			Available:         p.Limiter.Available(),
			NextTokenSeconds:  p.Limiter.TimeUntilToken().Seconds(),
		},
		Gate: p.Gate,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, errorResponse{Error: errorBody{Code: errCode, Message: message}})
}
