// Package store defines the block store contract (C2): a single-writer,
// multi-reader keyed table of blocks, plus an archive table for pruned
// history. Concrete backends live in subpackages (clickhouse).
package store

import (
	"context"
	"errors"
	"time"
)

// Block is the durable row shape. Index is the primary key; Hash carries
// a uniqueness constraint enforced by the backend.
type Block struct {
	Index        int64
	Timestamp    string
	Data         string
	PreviousHash string
	Hash         string
}

// ArchivedBlock is a Block moved to the archive table, stamped with when
// the move happened.
type ArchivedBlock struct {
	Block
	ArchivedAt time.Time
}

var (
	// ErrDuplicateIndex is returned by Insert when a block with the same
	// index already exists.
	ErrDuplicateIndex = errors.New("store: duplicate index")
	// ErrHashCollision is returned by Insert when a different block with
	// the same hash already exists.
	ErrHashCollision = errors.New("store: hash collision")
	// ErrNotFound names a missing row. Get and ArchiveGet do not return
	// it: they report a missing row through their bool result.
	ErrNotFound = errors.New("store: not found")
	// ErrStorageError wraps unexpected backend failures (connection,
	// query, scan errors) that are not one of the above semantic cases.
	ErrStorageError = errors.New("store: storage error")
)

// Store is the block store contract. Only the chain engine (C3) and the
// pruning engine (C8) are permitted to call the mutating methods; every
// other reader goes through the chain engine instead of this interface
// directly.
type Store interface {
	// LastIndex returns the highest index present in the main table, and
	// false if the table is empty.
	LastIndex(ctx context.Context) (index int64, ok bool, err error)

	// Get returns the block at index, and false if absent.
	Get(ctx context.Context, index int64) (Block, bool, error)

	// Range returns blocks with index in [lo, hi), ordered by index.
	Range(ctx context.Context, lo, hi int64) ([]Block, error)

	// Insert adds a new block. Returns ErrDuplicateIndex if index is
	// already present, ErrHashCollision if a different block shares
	// hash.
	Insert(ctx context.Context, b Block) error

	// DeleteAbove atomically removes every block with index > i. Used
	// only by chain replacement.
	DeleteAbove(ctx context.Context, i int64) error

	// ArchiveBelow moves every block with index < i to the archive
	// table, in index order, stamped with the current time, then
	// deletes them from the main table.
	ArchiveBelow(ctx context.Context, i int64) error

	// RestoreAll moves every archived block back into the main table and
	// clears the archive.
	RestoreAll(ctx context.Context) error

	// ArchiveGet returns the archived block at index, and false if
	// absent.
	ArchiveGet(ctx context.Context, index int64) (ArchivedBlock, bool, error)

	// ArchiveSearch returns archived blocks whose Data contains substr.
	ArchiveSearch(ctx context.Context, substr string) ([]ArchivedBlock, error)

	// ArchiveCompactOlderThan deletes archive rows archived before t.
	ArchiveCompactOlderThan(ctx context.Context, t time.Time) error

	// Close flushes and releases the backend connection. Called once,
	// during node shutdown, after in-flight append/replace/prune work
	// has finished (spec.md §6's "flush store").
	Close() error
}
