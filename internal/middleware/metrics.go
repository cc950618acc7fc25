package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	httpMetricsInstance *httpMetrics
	httpMetricsOnce     sync.Once
)

func getHTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpMetricsInstance = &httpMetrics{
			requests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "plugin_router",
					Subsystem: "http",
					Name:      "requests_total",
					Help:      "Total number of HTTP requests by route and status",
				},
				[]string{"route", "method", "status"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "plugin_router",
					Subsystem: "http",
					Name:      "request_duration_seconds",
					Help:      "Duration of HTTP requests",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"route"},
			),
		}
	})
	return httpMetricsInstance
}

// Metrics records request counts and latency per mux route template, so
// label cardinality stays bounded by the route table.
func Metrics(next http.Handler) http.Handler {
	m := getHTTPMetrics()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routeTemplate(r)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
