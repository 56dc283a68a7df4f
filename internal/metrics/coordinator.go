package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coordinatorOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensorledger",
		Subsystem: "coordinator",
		Name:      "operations_total",
		Help:      "Count of sync/broadcast coordinator operations.",
	}, []string{"operation", "status"})
	coordinatorOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sensorledger",
		Subsystem: "coordinator",
		Name:      "operation_duration_seconds",
		Help:      "Duration of sync/broadcast coordinator operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

// Coordinator tracks metrics for internal/coordinator operations
// (broadcast, sync, sync_fetch).
type Coordinator struct{}

// NewCoordinator creates a Coordinator metrics collector.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Observe records duration and outcome of one coordinator operation.
func (m Coordinator) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	coordinatorOpsTotal.WithLabelValues(operation, status).Inc()
	coordinatorOpDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}
