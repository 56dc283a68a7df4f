package peers

import (
	"context"
	"time"
)

// ChainClient is the minimal RPC capability the registry needs to probe a
// peer; internal/rpc.Client satisfies it.
type ChainClient interface {
	GetChain(ctx context.Context, address string) (chainLength int64, err error)
}

// ProbeMetrics receives per-probe duration and outcome.
type ProbeMetrics interface {
	Observe(operation string, err error, started time.Time)
}

// ObservedProbe decorates a ChainClient with metrics, the same decorator
// shape as internal/pkg/btcd/rpcclient.ObservedClient.
type ObservedProbe struct {
	client  ChainClient
	metrics ProbeMetrics
}

// NewObservedProbe builds a Prober backed by client, reporting to
// metrics.
func NewObservedProbe(client ChainClient, metrics ProbeMetrics) *ObservedProbe {
	return &ObservedProbe{client: client, metrics: metrics}
}

// Probe calls GetChain on address and reports the outcome.
func (p *ObservedProbe) Probe(ctx context.Context, address string) (chainLength int64, err error) {
	started := time.Now()
	defer func() {
		p.metrics.Observe("probe", err, started)
	}()
	return p.client.GetChain(ctx, address)
}
