package coordinator

import (
	"github.com/validexlabs/sensorledger/internal/merkle"
	"github.com/validexlabs/sensorledger/internal/rpc/wire"
	"github.com/validexlabs/sensorledger/internal/store"
)

func wireToStore(blocks []wire.Block) []store.Block {
	return wire.ToStoreSlice(blocks)
}

// wireToMerkleCandidate converts a peer's wire chain into the minimal
// view merkle.Validate needs, without materializing a second full
// store.Block slice when the caller already has one (it doesn't here,
// but merkle.ChainBlock and store.Block happen to carry the same
// fields, so this stays a thin field-for-field copy rather than a real
// transform).
func wireToMerkleCandidate(blocks []wire.Block) []merkle.ChainBlock {
	out := make([]merkle.ChainBlock, len(blocks))
	for i, b := range blocks {
		out[i] = merkle.ChainBlock{
			Index:        int64(b.Index),
			Timestamp:    b.Timestamp,
			Data:         b.Data,
			PreviousHash: b.PreviousHash,
			Hash:         b.Hash,
		}
	}
	return out
}
