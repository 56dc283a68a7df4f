package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/store"
)

// Replace atomically replaces the suffix above the highest common prefix
// with candidate's suffix. The caller (internal/coordinator) is
// responsible for running full validation on candidate (merkle.Validate)
// before calling Replace; Replace itself only re-checks the genesis
// precondition, since that is cheap and catches a caller bug before it
// can corrupt the store.
func (e *Engine) Replace(ctx context.Context, candidate []store.Block) error {
	if len(candidate) == 0 {
		return ErrEmptyCandidate
	}

	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	local, err := e.store.Range(ctx, 0, candidate[len(candidate)-1].Index+1)
	if err != nil {
		return fmt.Errorf("ledger: read local chain for replace: %w", err)
	}
	if len(local) == 0 {
		return fmt.Errorf("ledger: %w: local chain not initialized", ErrChainInconsistency)
	}

	localGenesis := local[0]
	if candidate[0].Hash != localGenesis.Hash {
		return ErrGenesisMismatch
	}

	commonPrefix := 0
	for commonPrefix < len(local) && commonPrefix < len(candidate) && local[commonPrefix].Hash == candidate[commonPrefix].Hash {
		commonPrefix++
	}

	if commonPrefix == 0 {
		return fmt.Errorf("ledger: %w: candidate shares no prefix with local chain, not even genesis", ErrGenesisMismatch)
	}

	if err := e.store.DeleteAbove(ctx, int64(commonPrefix-1)); err != nil {
		return fmt.Errorf("ledger: delete local suffix above index %d: %w", commonPrefix-1, err)
	}

	for _, b := range candidate[commonPrefix:] {
		if err := e.store.Insert(ctx, b); err != nil {
			return fmt.Errorf("ledger: insert replacement block %d: %w", b.Index, err)
		}
	}

	e.logger.Info("replaced chain suffix",
		zap.Int("commonPrefix", commonPrefix),
		zap.Int64("newLatestIndex", candidate[len(candidate)-1].Index),
	)
	return nil
}
