// Package coordinator implements the sync/broadcast coordinator (C7):
// rate-limited, bounded-fanout broadcast of newly appended blocks, and a
// periodic sync cycle that reconciles the local chain against peers
// under the deterministic longest-valid-chain rule.
package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/peers"
	"github.com/validexlabs/sensorledger/internal/rpc/wire"
	"github.com/validexlabs/sensorledger/internal/store"
	"github.com/validexlabs/sensorledger/pkg/workerpool"
)

const (
	defaultBroadcastCooldown = time.Second
	defaultBroadcastTimeout  = 4 * time.Second
	defaultBroadcastWorkers  = 8
	defaultSyncFetchWorkers  = 8
	defaultSyncPeerTimeout   = 5 * time.Second
	defaultSyncLockTimeout   = 5 * time.Second
)

// PeerClient is the subset of internal/rpc.Client the coordinator needs:
// fetch a peer's full chain during sync, and push a newly appended block
// during broadcast.
type PeerClient interface {
	FetchChain(ctx context.Context, address string) ([]wire.Block, error)
	Broadcast(ctx context.Context, address string, block wire.Block) error
}

// PeerSource is the subset of internal/peers.Registry the coordinator
// needs to pick broadcast and sync targets.
type PeerSource interface {
	Healthy() []peers.Record
}

// Metrics receives per-operation duration and outcome.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
}

// Coordinator is the sync/broadcast engine. One instance per node.
type Coordinator struct {
	engine  *ledger.Engine
	peers   PeerSource
	client  PeerClient
	metrics Metrics
	logger  *zap.Logger

	broadcastCooldown time.Duration
	broadcastTimeout  time.Duration
	broadcastWorkers  int
	syncFetchWorkers  int
	syncPeerTimeout   time.Duration
	syncLockTimeout   time.Duration

	lastBroadcastNano atomic.Int64
	syncing           atomic.Bool

	// inFlight tracks broadcastNow goroutines still running, so shutdown
	// (cmd/ledger-node's run()) can drain pending broadcasts for a
	// bounded window instead of abandoning them mid-flight (spec.md §6
	// "Exit behavior").
	inFlight sync.WaitGroup
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithBroadcastCooldown overrides the default 1s minimum interval
// between broadcasts.
func WithBroadcastCooldown(d time.Duration) Option {
	return func(c *Coordinator) { c.broadcastCooldown = d }
}

// WithBroadcastTimeout overrides the default 4s per-peer broadcast
// timeout.
func WithBroadcastTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.broadcastTimeout = d }
}

// WithBroadcastWorkers overrides the default bounded fan-out width.
func WithBroadcastWorkers(n int) Option {
	return func(c *Coordinator) { c.broadcastWorkers = n }
}

// WithSyncFetchWorkers overrides the default bounded fan-out width for
// collecting candidate chains during sync.
func WithSyncFetchWorkers(n int) Option {
	return func(c *Coordinator) { c.syncFetchWorkers = n }
}

// WithSyncPeerTimeout overrides the default 5s per-peer GetChain
// timeout during a sync cycle.
func WithSyncPeerTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.syncPeerTimeout = d }
}

// WithSyncLockTimeout overrides the default 5s single-flight watchdog.
func WithSyncLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.syncLockTimeout = d }
}

// New builds a Coordinator.
func New(engine *ledger.Engine, peerSource PeerSource, client PeerClient, metrics Metrics, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:            engine,
		peers:             peerSource,
		client:            client,
		metrics:           metrics,
		logger:            logger,
		broadcastCooldown: defaultBroadcastCooldown,
		broadcastTimeout:  defaultBroadcastTimeout,
		broadcastWorkers:  defaultBroadcastWorkers,
		syncFetchWorkers:  defaultSyncFetchWorkers,
		syncPeerTimeout:   defaultSyncPeerTimeout,
		syncLockTimeout:   defaultSyncLockTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Broadcast schedules block for gossip to healthy peers. It never blocks
// the caller beyond the cooldown check: the actual fan-out runs in its
// own goroutine, detached from ctx, per spec.md §4.7's "broadcast never
// blocks the caller beyond scheduling".
func (c *Coordinator) Broadcast(block store.Block) {
	if !c.takeBroadcastSlot() {
		c.logger.Debug("broadcast dropped by cooldown", zap.Int64("index", block.Index))
		return
	}
	c.inFlight.Add(1)
	go func() {
		defer c.inFlight.Done()
		c.broadcastNow(context.Background(), block)
	}()
}

// DrainBroadcasts blocks until every in-flight broadcastNow goroutine
// finishes or timeout elapses, whichever comes first. Called during
// shutdown (cmd/ledger-node's run()) per spec.md §6's "drain pending
// broadcasts for ≤ 1 s".
func (c *Coordinator) DrainBroadcasts(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		c.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("shutdown: broadcast drain timed out", zap.Duration("timeout", timeout))
	}
}

func (c *Coordinator) takeBroadcastSlot() bool {
	for {
		last := c.lastBroadcastNano.Load()
		now := time.Now().UnixNano()
		if time.Duration(now-last) < c.broadcastCooldown {
			return false
		}
		if c.lastBroadcastNano.CompareAndSwap(last, now) {
			return true
		}
	}
}

func (c *Coordinator) broadcastNow(ctx context.Context, block store.Block) {
	wireBlock, err := wire.FromStore(block)
	if err != nil {
		c.logger.Error("broadcast: block index overflows wire format", zap.Error(err))
		return
	}

	targets := c.selectBroadcastTargets(block.Index)
	if len(targets) == 0 {
		return
	}

	_ = workerpool.Process(ctx, c.broadcastWorkers, targets, func(ctx context.Context, peer peers.Record) error {
		pctx, cancel := context.WithTimeout(ctx, c.broadcastTimeout)
		defer cancel()

		started := time.Now()
		err := c.client.Broadcast(pctx, peer.Address, wireBlock)
		c.metrics.Observe("broadcast", err, started)
		if err != nil {
			c.logger.Warn("broadcast to peer failed", zap.String("address", peer.Address), zap.Error(err))
		}
		// Broadcast is log-and-continue, never first-error-cancels: one
		// slow or unreachable peer must not abort delivery to the rest.
		return nil
	}, nil)
}

// selectBroadcastTargets applies the per-peer short-circuit spec.md
// §4.7.3 describes literally: skip a peer whose cached chainLength is
// already >= the new block's index (it is assumed caught up via its own
// path), and skip a peer whose chainLength is < index-1 (too far behind
// to make use of one block directly; it will catch up via sync).
func (c *Coordinator) selectBroadcastTargets(blockIndex int64) []peers.Record {
	var targets []peers.Record
	for _, p := range c.peers.Healthy() {
		if p.ChainLength >= blockIndex {
			continue
		}
		if p.ChainLength < blockIndex-1 {
			continue
		}
		targets = append(targets, p)
	}
	return targets
}
