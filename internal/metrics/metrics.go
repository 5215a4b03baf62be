package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests served by the dashboard",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Hospital API connectivity
	apiConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hospital_api_connected",
			Help: "1 when the last health probe reached the hospital API, 0 otherwise",
		},
	)

	apiProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hospital_api_probe_duration_seconds",
			Help:    "Hospital API health probe round trip in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resource_fallbacks_total",
			Help: "Total number of list fetches answered with sample data",
		},
		[]string{"resource", "reason"},
	)

	// Business metrics
	bedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bed_transitions_total",
			Help: "Total number of bed workflow actions",
		},
		[]string{"action", "mode", "result"},
	)

	bedInvariantViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bed_invariant_violations_total",
			Help: "Beds whose status disagrees with their patient assignment",
		},
	)
)

// Middleware records request counts and latencies keyed by the chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RecordProbe(connected bool, d time.Duration) {
	if connected {
		apiConnected.Set(1)
	} else {
		apiConnected.Set(0)
	}
	apiProbeDuration.Observe(d.Seconds())
}

func RecordFallback(resource, reason string) {
	fallbacksTotal.WithLabelValues(resource, reason).Inc()
}

func RecordBedTransition(action, mode string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	bedTransitions.WithLabelValues(action, mode, result).Inc()
}

func RecordInvariantViolations(n int) {
	if n > 0 {
		bedInvariantViolations.Add(float64(n))
	}
}
