package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pruneOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensorledger",
		Subsystem: "prune",
		Name:      "operations_total",
		Help:      "Count of pruning engine operations (eligibility checks, archive chunks, compaction, restore).",
	}, []string{"operation", "status"})
	pruneOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sensorledger",
		Subsystem: "prune",
		Name:      "operation_duration_seconds",
		Help:      "Duration of pruning engine operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	pruneArchivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorledger",
		Subsystem: "prune",
		Name:      "blocks_archived_total",
		Help:      "Total number of blocks moved from the main table to archive.",
	})
)

// Prune tracks metrics for internal/prune operations.
type Prune struct{}

// NewPrune creates a Prune metrics collector.
func NewPrune() *Prune {
	return &Prune{}
}

// Observe records duration and outcome of one pruning operation.
func (m Prune) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pruneOpsTotal.WithLabelValues(operation, status).Inc()
	pruneOpDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// AddArchived increments the archived-block counter by n.
func (m Prune) AddArchived(n int) {
	pruneArchivedTotal.Add(float64(n))
}
