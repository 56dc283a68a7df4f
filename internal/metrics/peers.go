package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	peerProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensorledger",
		Subsystem: "peers",
		Name:      "probes_total",
		Help:      "Count of peer health probes.",
	}, []string{"status"})
	peerProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sensorledger",
		Subsystem: "peers",
		Name:      "probe_duration_seconds",
		Help:      "Duration of peer health probes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})
	peersHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sensorledger",
		Subsystem: "peers",
		Name:      "healthy",
		Help:      "Number of peers currently marked healthy.",
	})
)

// Peers tracks metrics for peer registry operations.
type Peers struct{}

// NewPeers creates a Peers metrics collector.
func NewPeers() *Peers {
	return &Peers{}
}

// Observe records duration and status of one peer probe.
func (m Peers) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	peerProbesTotal.WithLabelValues(status).Inc()
	peerProbeDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// SetHealthyCount records the current size of the healthy peer set.
func (m Peers) SetHealthyCount(n int) {
	peersHealthy.Set(float64(n))
}
