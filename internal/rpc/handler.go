package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/rpc/wire"
)

// Syncer is the one-shot reconciliation hook ReceiveBlock/AddBlock fall
// back to on a previousHash mismatch; internal/coordinator.Coordinator
// satisfies it via SyncOnce. Kept as a narrow interface so internal/rpc
// never imports internal/coordinator (which itself depends on
// internal/rpc's Client to reach peers).
type Syncer interface {
	SyncOnce(ctx context.Context) error
}

// Metrics receives per-method duration and outcome.
type Metrics interface {
	Observe(method string, err error, started time.Time)
}

// Handler implements PeerServer over a chain engine, the server half of
// C6. Its business logic (sequence checks, idempotence, one-shot sync
// retry) is spec.md §4.6's contract for GetChain/ReceiveBlock/AddBlock.
type Handler struct {
	engine  *ledger.Engine
	syncer  Syncer
	metrics Metrics
	logger  *zap.Logger
}

// NewHandler builds a Handler. syncer may be nil, in which case a
// previousHash mismatch is rejected immediately instead of retried.
func NewHandler(engine *ledger.Engine, syncer Syncer, metrics Metrics, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, syncer: syncer, metrics: metrics, logger: logger}
}

// GetChain returns the full local chain.
func (h *Handler) GetChain(ctx context.Context, _ *wire.GetChainRequest) (*wire.ChainResponse, error) {
	started := time.Now()
	resp, err := h.getChain(ctx)
	h.metrics.Observe("GetChain", err, started)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// ReceiveBlock appends block if it is the immediate successor of the
// local latest block, retrying once via Syncer on a previousHash
// mismatch before giving up.
func (h *Handler) ReceiveBlock(ctx context.Context, block *wire.Block) (*wire.ChainResponse, error) {
	started := time.Now()
	resp, err := h.appendOrRetry(ctx, block, false)
	h.metrics.Observe("ReceiveBlock", err, started)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// AddBlock behaves like ReceiveBlock, except that a block already
// present at the candidate's index is treated as success rather than a
// conflict (spec.md §4.6, P5).
func (h *Handler) AddBlock(ctx context.Context, block *wire.Block) (*wire.ChainResponse, error) {
	started := time.Now()
	resp, err := h.appendOrRetry(ctx, block, true)
	h.metrics.Observe("AddBlock", err, started)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (h *Handler) appendOrRetry(ctx context.Context, wireBlock *wire.Block, idempotent bool) (*wire.ChainResponse, error) {
	if wireBlock == nil {
		return nil, fmt.Errorf("%w: nil block", ledger.ErrInvalidPayload)
	}
	candidate := wire.ToStore(*wireBlock)

	if idempotent {
		_, found, err := h.engine.BlockAt(ctx, candidate.Index)
		if err != nil {
			return nil, err
		}
		if found {
			return h.getChain(ctx)
		}
	}

	if err := h.engine.AppendForeign(ctx, candidate); err != nil {
		if !errors.Is(err, ledger.ErrSequenceMismatch) || h.syncer == nil {
			return nil, err
		}
		h.logger.Info("previousHash mismatch, attempting one-shot sync",
			zap.Int64("candidateIndex", candidate.Index))
		if syncErr := h.syncer.SyncOnce(ctx); syncErr != nil {
			h.logger.Warn("one-shot sync failed", zap.Error(syncErr))
		}
		if err := h.engine.AppendForeign(ctx, candidate); err != nil {
			return nil, err
		}
	}

	return h.getChain(ctx)
}

func (h *Handler) getChain(ctx context.Context) (*wire.ChainResponse, error) {
	blocks, err := h.engine.GetChain(ctx)
	if err != nil {
		return nil, err
	}
	wireBlocks, err := wire.FromStoreSlice(blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrChainInconsistency, err)
	}
	return &wire.ChainResponse{Chain: wireBlocks}, nil
}
