package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Field("status", "ok").
		Field("timestamp", time.Now().Format(time.RFC3339)).
		Field("uptime", time.Since(s.metrics.started).Round(time.Second).String()).
		Write(w)
}

// handleReady checks that the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	database := "ok"
	switch {
	case s.svc.Store == nil:
		database = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.svc.Store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "error", err)
			database = "unavailable"
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	NewResponse().
		Status(code).
		Field("status", status).
		Field("timestamp", time.Now().Format(time.RFC3339)).
		Field("checks", map[string]string{"database": database}).
		Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.trace.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, value)
	}
	gauge := func(name, help string, value float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, value)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "HTTP responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_response_time_avg_seconds", "Average response time", traceMetrics.AverageResponseTime.Seconds())
	counter("transactions_created_total", "Transactions created through the API", atomic.LoadInt64(&s.metrics.transactionsCreated))
	counter("reminders_read_total", "Reminders acknowledged through the API", atomic.LoadInt64(&s.metrics.remindersRead))
	counter("handler_panics_total", "Recovered handler panics", atomic.LoadInt64(&s.metrics.panics))
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	if s.limiter != nil {
		limiterMetrics := s.limiter.GetMetrics()
		counter("rate_limit_rejections_total", "Requests rejected by the rate limiter", limiterMetrics.Rejected)
		gauge("rate_limit_clients", "Currently tracked rate limit clients", float64(limiterMetrics.ClientCount))
	}
	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.metrics.started).Seconds())
}
