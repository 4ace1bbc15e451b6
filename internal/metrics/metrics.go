// Package metrics exposes Prometheus counters for the HTTP surface and the
// analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clarify_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clarify_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clarify_analyses_total",
		Help: "Completed analyses by content kind and cache outcome.",
	}, []string{"kind", "outcome"})

	analysisFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clarify_analysis_failures_total",
		Help: "Failed analyses by stage.",
	}, []string{"stage"})

	quotaRefusalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clarify_quota_refusals_total",
		Help: "Anonymous requests refused because the device quota was reached.",
	})
)

// ObserveAnalysis records a finished analysis. kind is "article" or "video",
// outcome is "fresh" or "cached".
func ObserveAnalysis(kind, outcome string) {
	analysesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveAnalysisFailure records a failed analysis by pipeline stage.
func ObserveAnalysisFailure(stage string) {
	analysisFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveQuotaRefusal records an over-quota refusal.
func ObserveQuotaRefusal() {
	quotaRefusalsTotal.Inc()
}

// Middleware instruments every request with a counter and a latency
// histogram, labelled by the chi route pattern rather than the raw path so
// parameterized routes do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
