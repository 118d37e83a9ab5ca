package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPRequests counts requests by route pattern, method and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "entitlement",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by route, method and status.",
}, []string{"route", "method", "status"})

// HTTPDuration tracks request latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "entitlement",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// ─── Rule Metrics ───────────────────────────────────────────────────────────

// RuleViolations counts blocking rule failures by rule code.
var RuleViolations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "entitlement",
	Subsystem: "rules",
	Name:      "violations_total",
	Help:      "Total rule violations returned to callers, by rule.",
}, []string{"rule"})

// OvertimeTransitions counts overtime state changes by target state.
var OvertimeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "entitlement",
	Subsystem: "overtime",
	Name:      "transitions_total",
	Help:      "Total overtime entry state transitions, by target state.",
}, []string{"state"})

// VacationAllocations counts annual allocations created by the batch.
var VacationAllocations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "entitlement",
	Subsystem: "vacation",
	Name:      "allocations_created_total",
	Help:      "Total annual vacation allocations created.",
})

// instrument records HTTPRequests and HTTPDuration. Must run inside the chi
// router so the route pattern is resolved.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
