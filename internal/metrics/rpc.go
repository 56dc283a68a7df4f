package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcHandlerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensorledger",
		Subsystem: "rpc",
		Name:      "handler_total",
		Help:      "Count of peer RPC handler invocations.",
	}, []string{"method", "status"})
	rpcHandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sensorledger",
		Subsystem: "rpc",
		Name:      "handler_duration_seconds",
		Help:      "Duration of peer RPC handler invocations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// RPC tracks metrics for the peer RPC handler (internal/rpc.Handler).
type RPC struct{}

// NewRPC creates an RPC metrics collector.
func NewRPC() *RPC {
	return &RPC{}
}

// Observe records duration and outcome of one handler call.
func (m RPC) Observe(method string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	rpcHandlerTotal.WithLabelValues(method, status).Inc()
	rpcHandlerDuration.WithLabelValues(method, status).Observe(time.Since(started).Seconds())
}
