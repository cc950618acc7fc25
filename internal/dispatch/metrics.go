package dispatch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dispatchMetrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	abandoned prometheus.Gauge
}

var (
	dispatchMetricsInstance *dispatchMetrics
	dispatchMetricsOnce     sync.Once
)

// getDispatchMetrics returns the singleton dispatch metrics instance.
func getDispatchMetrics() *dispatchMetrics {
	dispatchMetricsOnce.Do(func() {
		dispatchMetricsInstance = &dispatchMetrics{
			calls: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "plugin_router",
					Subsystem: "dispatch",
					Name:      "calls_total",
					Help:      "Total number of plugin calls by outcome",
				},
				[]string{"plugin", "outcome"},
			),
			duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "plugin_router",
					Subsystem: "dispatch",
					Name:      "call_duration_seconds",
					Help:      "Duration of plugin calls",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"plugin"},
			),
			inFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "plugin_router",
					Subsystem: "dispatch",
					Name:      "calls_in_flight",
					Help:      "Number of plugin calls currently running",
				},
			),
			abandoned: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "plugin_router",
					Subsystem: "dispatch",
					Name:      "calls_abandoned",
					Help:      "Number of timed out plugin handlers still running",
				},
			),
		}
	})
	return dispatchMetricsInstance
}
