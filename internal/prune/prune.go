// Package prune implements the pruning/archive engine (C8): on a slow
// timer, moves the oldest 80% of an overgrown chain into the archive
// table, leaving the newest 20% in the main table, and offers restore,
// search, and archive compaction on demand.
package prune

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/clock"
	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/store"
	"github.com/validexlabs/sensorledger/pkg/batcher"
)

const (
	defaultPruningThreshold = 1000
	defaultArchiveInterval  = 24 * time.Hour
	defaultCheckInterval    = 6 * time.Hour
	defaultChunkSize        = 500
	defaultChunkFlushWait   = 2 * time.Second
	defaultChunkRPS         = 5
	minPruneBelow           = 100
)

// Metrics receives per-operation duration/outcome, plus a running count
// of blocks archived.
type Metrics interface {
	Observe(operation string, err error, started time.Time)
	AddArchived(n int)
}

// Engine is the pruning engine. One instance per node.
type Engine struct {
	ledger  *ledger.Engine
	store   store.Store
	metrics Metrics
	logger  *zap.Logger

	pruningThreshold int64
	archiveInterval  time.Duration
	checkInterval    time.Duration
	chunkSize        int
	chunkFlushWait   time.Duration
	chunkRPS         int

	mu          sync.Mutex
	lastPruning time.Time
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithPruningThreshold overrides the default chain length (1000) above
// which pruning becomes eligible.
func WithPruningThreshold(n int64) Option {
	return func(e *Engine) { e.pruningThreshold = n }
}

// WithArchiveInterval overrides the default minimum 24h spacing between
// pruning runs.
func WithArchiveInterval(d time.Duration) Option {
	return func(e *Engine) { e.archiveInterval = d }
}

// WithCheckInterval overrides the default 6h eligibility-check cadence.
func WithCheckInterval(d time.Duration) Option {
	return func(e *Engine) { e.checkInterval = d }
}

// WithChunkSize overrides the default 500-block archive migration chunk.
func WithChunkSize(n int) Option {
	return func(e *Engine) { e.chunkSize = n }
}

// WithChunkRPS overrides the default 5 chunks/second throttle applied to
// the backend while migrating a large range to archive.
func WithChunkRPS(n int) Option {
	return func(e *Engine) { e.chunkRPS = n }
}

// New builds a pruning Engine. ledgerEngine supplies the chain-writer
// lock this engine must hold during a migration; st is the same block
// store backing ledgerEngine.
func New(ledgerEngine *ledger.Engine, st store.Store, metrics Metrics, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		ledger:           ledgerEngine,
		store:            st,
		metrics:          metrics,
		logger:           logger,
		pruningThreshold: defaultPruningThreshold,
		archiveInterval:  defaultArchiveInterval,
		checkInterval:    defaultCheckInterval,
		chunkSize:        defaultChunkSize,
		chunkFlushWait:   defaultChunkFlushWait,
		chunkRPS:         defaultChunkRPS,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run fires CheckAndRun every checkInterval until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.CheckAndRun(ctx); err != nil {
			e.logger.Warn("prune: eligibility check or run failed", zap.Error(err))
		}
		if err := clock.SleepWithContext(ctx, e.checkInterval); err != nil {
			return err
		}
	}
}

// CheckAndRun evaluates spec.md §4.8's eligibility rule
// (chainLength > pruningThreshold ∧ now−lastPruning > archiveInterval)
// and, if eligible, migrates the oldest pruneBelow = floor(chainLength
// × 0.8) blocks to archive. A no-op (nil error) if ineligible.
func (e *Engine) CheckAndRun(ctx context.Context) error {
	idx, ok, err := e.store.LastIndex(ctx)
	if err != nil {
		return fmt.Errorf("prune: read chain length: %w", err)
	}
	if !ok {
		return nil
	}
	chainLength := idx + 1

	if chainLength <= e.pruningThreshold {
		return nil
	}
	e.mu.Lock()
	last := e.lastPruning
	e.mu.Unlock()
	if !last.IsZero() && time.Since(last) <= e.archiveInterval {
		return nil
	}

	pruneBelow := int64(float64(chainLength) * 0.8)
	if pruneBelow < minPruneBelow {
		return nil
	}

	started := time.Now()
	err = e.ledger.WithWriterLock(ctx, func(ctx context.Context) error {
		return e.archiveChunked(ctx, pruneBelow)
	})
	e.metrics.Observe("prune", err, started)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.lastPruning = time.Now()
	e.mu.Unlock()
	e.logger.Info("pruned chain", zap.Int64("pruneBelow", pruneBelow), zap.Int64("chainLength", chainLength))
	return nil
}

// archiveChunked streams indices [0, pruneBelow) through a
// size-and-interval-triggered batcher, each flush moving one contiguous
// chunk to archive via a single ArchiveBelow call rate-limited against
// the backend. This keeps one large migration from issuing thousands of
// ClickHouse mutations in a burst.
func (e *Engine) archiveChunked(ctx context.Context, pruneBelow int64) error {
	var mu sync.Mutex
	var flushErr error

	b := batcher.New[int64](e.logger, func(fctx context.Context, chunk []int64) error {
		if len(chunk) == 0 {
			return nil
		}
		boundary := chunk[len(chunk)-1] + 1
		if err := e.store.ArchiveBelow(fctx, boundary); err != nil {
			mu.Lock()
			flushErr = err
			mu.Unlock()
			return err
		}
		e.metrics.AddArchived(len(chunk))
		return nil
	}, e.chunkSize, e.chunkFlushWait, e.chunkRPS)

	b.Start(ctx)
	for i := int64(0); i < pruneBelow; i++ {
		if err := b.Add(ctx, i); err != nil {
			b.Stop()
			return fmt.Errorf("prune: queue index %d for archiving: %w", i, err)
		}
	}
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	return flushErr
}

// Restore moves every archived block back into the main table, clearing
// the pruning cooldown so a subsequent CheckAndRun can prune again once
// the chain regrows past the threshold.
func (e *Engine) Restore(ctx context.Context) error {
	started := time.Now()
	err := e.ledger.WithWriterLock(ctx, func(ctx context.Context) error {
		return e.store.RestoreAll(ctx)
	})
	e.metrics.Observe("restore", err, started)
	if err != nil {
		return fmt.Errorf("prune: restore archive: %w", err)
	}
	e.mu.Lock()
	e.lastPruning = time.Time{}
	e.mu.Unlock()
	return nil
}

// ArchiveGet returns the archived block at index, for the admin archive
// lookup surface.
func (e *Engine) ArchiveGet(ctx context.Context, index int64) (store.ArchivedBlock, bool, error) {
	started := time.Now()
	b, found, err := e.store.ArchiveGet(ctx, index)
	e.metrics.Observe("archive_get", err, started)
	if err != nil {
		return store.ArchivedBlock{}, false, fmt.Errorf("prune: get archived block %d: %w", index, err)
	}
	return b, found, nil
}

// ArchiveSearch returns archived blocks whose data contains substr, for
// the admin archive search surface (spec.md §4.2).
func (e *Engine) ArchiveSearch(ctx context.Context, substr string) ([]store.ArchivedBlock, error) {
	started := time.Now()
	out, err := e.store.ArchiveSearch(ctx, substr)
	e.metrics.Observe("archive_search", err, started)
	if err != nil {
		return nil, fmt.Errorf("prune: search archive: %w", err)
	}
	return out, nil
}

// CompactOlderThan removes archive rows archived before t.
func (e *Engine) CompactOlderThan(ctx context.Context, t time.Time) error {
	started := time.Now()
	err := e.store.ArchiveCompactOlderThan(ctx, t)
	e.metrics.Observe("archive_compact", err, started)
	if err != nil {
		return fmt.Errorf("prune: compact archive older than %s: %w", t, err)
	}
	return nil
}
