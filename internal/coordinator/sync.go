package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/clock"
	"github.com/validexlabs/sensorledger/internal/merkle"
	"github.com/validexlabs/sensorledger/internal/peers"
	"github.com/validexlabs/sensorledger/internal/store"
	"github.com/validexlabs/sensorledger/pkg/workerpool"
)

// ErrSyncInProgress is returned by SyncOnce when another sync cycle is
// already running; the caller (internal/rpc's one-shot retry, or the
// periodic scheduler) should treat this as "someone else is already
// reconciling" rather than an error worth surfacing.
var ErrSyncInProgress = errors.New("coordinator: sync already in progress")

// SyncOnce runs one reconciliation cycle: collect candidate chains from
// healthy peers, validate each, apply the consensus rule over
// {local} ∪ valid_remotes, and replace the local chain if a different
// one wins. A single-flight guard with a watchdog timer prevents
// re-entrancy and permanent deadlock if a handler crashes mid-cycle
// (spec.md §5).
func (c *Coordinator) SyncOnce(ctx context.Context) error {
	if !c.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	watchdog := time.AfterFunc(c.syncLockTimeout, func() { c.syncing.Store(false) })
	defer func() {
		watchdog.Stop()
		c.syncing.Store(false)
	}()

	started := time.Now()
	err := c.runSync(ctx)
	c.metrics.Observe("sync", err, started)
	return err
}

func (c *Coordinator) runSync(ctx context.Context) error {
	local, err := c.engine.GetChain(ctx)
	if err != nil {
		return err
	}

	remotes := c.collectValidRemotes(ctx, local[0].Hash)

	chosen := chooseChain(local, remotes)
	if len(chosen) > 0 && chosen[len(chosen)-1].Hash == local[len(local)-1].Hash {
		return nil
	}
	return c.engine.Replace(ctx, chosen)
}

func (c *Coordinator) collectValidRemotes(ctx context.Context, localGenesisHash string) [][]store.Block {
	targets := c.peers.Healthy()
	if len(targets) == 0 {
		return nil
	}

	chains := make([][]store.Block, len(targets))
	_ = workerpool.Process(ctx, c.syncFetchWorkers, targets, func(ctx context.Context, p peers.Record) error {
		pctx, cancel := context.WithTimeout(ctx, c.syncPeerTimeout)
		defer cancel()

		started := time.Now()
		wireChain, err := c.client.FetchChain(pctx, p.Address)
		c.metrics.Observe("sync_fetch", err, started)
		if err != nil {
			c.logger.Warn("sync: fetch chain failed", zap.String("address", p.Address), zap.Error(err))
			return nil
		}

		chain := wireToMerkleCandidate(wireChain)
		if len(chain) == 0 || chain[0].Hash != localGenesisHash {
			return nil
		}
		if !merkle.Validate(chain) {
			c.logger.Warn("sync: peer returned invalid chain", zap.String("address", p.Address))
			return nil
		}

		idx, found := indexOf(targets, p.Address)
		if found {
			chains[idx] = wireToStore(wireChain)
		}
		return nil
	}, nil)

	var out [][]store.Block
	for _, ch := range chains {
		if len(ch) > 0 {
			out = append(out, ch)
		}
	}
	return out
}

func indexOf(targets []peers.Record, address string) (int, bool) {
	for i, p := range targets {
		if p.Address == address {
			return i, true
		}
	}
	return 0, false
}

// RunSync fires SyncOnce at absolute wall-clock seconds :00 and :30,
// aligning independently scheduled nodes without any coordination
// beyond the clock (spec.md §4.7's periodic sync schedule).
func (c *Coordinator) RunSync(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		next := nextHalfMinuteBoundary(time.Now())
		if err := clock.SleepWithContext(ctx, time.Until(next)); err != nil {
			return err
		}
		if err := c.SyncOnce(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
			c.logger.Warn("periodic sync failed", zap.Error(err))
		}
	}
}

func nextHalfMinuteBoundary(now time.Time) time.Time {
	truncated := now.Truncate(time.Second)
	sec := truncated.Second()
	switch {
	case sec < 30:
		return truncated.Add(time.Duration(30-sec) * time.Second)
	case sec == 30:
		return truncated.Add(30 * time.Second)
	default:
		return truncated.Add(time.Duration(60-sec) * time.Second)
	}
}
