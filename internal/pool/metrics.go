package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors kube-state-metrics' pattern of binding every collector to
// one registry via promauto.With, rather than the package-level default
// registry, so more than one Pool (e.g. one per compare-mode test run) can
// coexist without a MustRegister panic.
type metrics struct {
	workers       prometheus.Gauge
	queueDepth    prometheus.Gauge
	agentErrors   prometheus.Counter
	futureLatency prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		workers: f.NewGauge(prometheus.GaugeOpts{
			Name: "candela_pool_workers",
			Help: "Number of worker goroutines owned by the pool.",
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "candela_pool_queue_depth",
			Help: "Number of tasks currently queued awaiting a worker.",
		}),
		agentErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "candela_pool_agent_errors_total",
			Help: "Number of agent actions that completed with an error and no error handler.",
		}),
		futureLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "candela_pool_future_latency_seconds",
			Help:    "Time a worker spent running a submitted task.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
