package wire

import (
	"github.com/validexlabs/sensorledger/internal/store"
	"github.com/validexlabs/sensorledger/pkg/safe"
)

// FromStore converts a store.Block to its wire form. It can fail only if
// the chain has grown past int32 indexes, which is outside this
// system's operating envelope.
func FromStore(b store.Block) (Block, error) {
	idx, err := safe.Int32(b.Index)
	if err != nil {
		return Block{}, err
	}
	return Block{
		Index:        idx,
		Timestamp:    b.Timestamp,
		Data:         b.Data,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
	}, nil
}

// FromStoreSlice converts a full chain, preserving order.
func FromStoreSlice(blocks []store.Block) ([]Block, error) {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		wb, err := FromStore(b)
		if err != nil {
			return nil, err
		}
		out[i] = wb
	}
	return out, nil
}

// ToStore converts a wire Block to its store form. Widening int32 to
// int64 is always safe, unlike the reverse direction.
func ToStore(b Block) store.Block {
	return store.Block{
		Index:        int64(b.Index),
		Timestamp:    b.Timestamp,
		Data:         b.Data,
		PreviousHash: b.PreviousHash,
		Hash:         b.Hash,
	}
}

// ToStoreSlice converts a full wire chain, preserving order.
func ToStoreSlice(blocks []Block) []store.Block {
	out := make([]store.Block, len(blocks))
	for i, b := range blocks {
		out[i] = ToStore(b)
	}
	return out
}
