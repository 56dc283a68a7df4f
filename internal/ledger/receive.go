package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/chainhash"
	"github.com/validexlabs/sensorledger/internal/store"
)

// ErrSequenceMismatch is returned by AppendForeign when candidate does
// not extend the local chain by exactly one block (a candidate whose hash
// is not self-consistent gets ErrInvalidPayload instead). internal/rpc's
// Handler uses this to decide whether a
// one-shot sync attempt is worth triggering before giving up.
var ErrSequenceMismatch = errors.New("ledger: candidate does not extend local chain")

// AppendForeign inserts a block built by a peer rather than this node's
// own Append: the hash is taken as given, not recomputed from a fresh
// timestamp, but is checked for self-consistency before anything is
// written. Used by internal/rpc's ReceiveBlock/AddBlock handlers.
func (e *Engine) AppendForeign(ctx context.Context, candidate store.Block) error {
	if chainhash.HashBlock(candidate.Index, candidate.Timestamp, candidate.Data, candidate.PreviousHash) != candidate.Hash {
		return fmt.Errorf("%w: hash does not match contents", ErrInvalidPayload)
	}

	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	latest, err := e.Latest(ctx)
	if err != nil {
		return err
	}

	if candidate.Index != latest.Index+1 || candidate.PreviousHash != latest.Hash {
		return fmt.Errorf("%w: want index %d linked to %s, got index %d linked to %s",
			ErrSequenceMismatch, latest.Index+1, latest.Hash, candidate.Index, candidate.PreviousHash)
	}

	if err := e.store.Insert(ctx, candidate); err != nil {
		if errors.Is(err, store.ErrDuplicateIndex) || errors.Is(err, store.ErrHashCollision) {
			return fmt.Errorf("%w: %v", ErrStoreConflict, err)
		}
		return fmt.Errorf("ledger: insert foreign block: %w", err)
	}

	e.logger.Info("appended foreign block", zap.Int64("index", candidate.Index), zap.String("hash", candidate.Hash))
	return nil
}

// BlockAt returns the block stored at index, if any. Used by
// internal/rpc's AddBlock handler to implement idempotence on index.
func (e *Engine) BlockAt(ctx context.Context, index int64) (store.Block, bool, error) {
	b, found, err := e.store.Get(ctx, index)
	if err != nil {
		return store.Block{}, false, fmt.Errorf("ledger: read block %d: %w", index, err)
	}
	return b, found, nil
}
