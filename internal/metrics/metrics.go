package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundrmate",
			Name:      "gateway_requests_total",
			Help:      "Backend API calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "laundrmate",
			Name:      "gateway_request_duration_seconds",
			Help:      "Backend API call latency by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	rollbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundrmate",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic mutations restored from the server after a failure.",
		},
		[]string{"op"},
	)

	staleLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "laundrmate",
			Name:      "store_discarded_loads_total",
			Help:      "List responses discarded because they were stale or the view was detached.",
		},
		[]string{"view"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(gatewayRequests, gatewayLatency, rollbacks, staleLoads)
	})
}

// ObserveRequest records one gateway call.
func ObserveRequest(op string, err error, took time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	gatewayRequests.WithLabelValues(op, outcome).Inc()
	gatewayLatency.WithLabelValues(op).Observe(took.Seconds())
}

// IncRollback counts a rollback of an optimistic operation.
func IncRollback(op string) {
	rollbacks.WithLabelValues(op).Inc()
}

// IncDiscardedLoad counts a list response that was not applied.
func IncDiscardedLoad(view string) {
	staleLoads.WithLabelValues(view).Inc()
}
