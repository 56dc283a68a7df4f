// Package ledger implements the chain engine (C3): the in-process API
// for reading the latest block, appending new blocks, and replacing the
// chain under consensus. It wraps an internal/store.Store and enforces
// the structural invariants the store itself does not know about.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/chainhash"
	"github.com/validexlabs/sensorledger/internal/store"
)

const (
	// GenesisTimestamp is fixed so that an isolated node produces the
	// same genesis hash as any peer.
	GenesisTimestamp = "2023-01-01T00:00:00.000Z"
	genesisData      = `{"message":"Genesis Block"}`
	genesisPrevious  = "0"
)

var (
	// ErrInvalidPayload is returned by Append on shape errors in the
	// submitted sensor reading.
	ErrInvalidPayload = errors.New("ledger: invalid payload")
	// ErrStoreConflict is returned by Append when the underlying store
	// rejects the insert due to a race (another writer got there first).
	ErrStoreConflict = errors.New("ledger: store conflict")
	// ErrChainInconsistency signals local corruption detected while
	// streaming the chain: this is treated as fatal and the caller
	// should stop accepting appends.
	ErrChainInconsistency = errors.New("ledger: chain inconsistency")
	// ErrGenesisMismatch is returned by Replace when the candidate's
	// first block does not match local genesis.
	ErrGenesisMismatch = errors.New("ledger: candidate genesis mismatch")
	// ErrEmptyCandidate is returned by Replace for a zero-length
	// candidate chain.
	ErrEmptyCandidate = errors.New("ledger: empty candidate chain")
)

// SensorReading is the admission-layer payload accepted by Append. It is
// marshaled verbatim into the block's Data field.
type SensorReading struct {
	SensorID  string  `json:"sensor_id"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

func (r SensorReading) validate() error {
	if r.SensorID == "" {
		return fmt.Errorf("%w: missing sensor_id", ErrInvalidPayload)
	}
	if r.Timestamp == "" {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidPayload)
	}
	return nil
}

// Appender is the narrow seam the external sensor-admission layer (out
// of scope, spec.md §1) depends on: verify a signed reading, then call
// Append. *Engine satisfies it; admission code should depend on this
// interface rather than the concrete Engine so it cannot reach Replace,
// AppendForeign, or the other chain-writer operations it has no
// business calling.
type Appender interface {
	Append(ctx context.Context, reading SensorReading) (store.Block, error)
}

// Engine is the chain engine. append and replace are mutually exclusive
// through writerMu; readers operate lock-free against the store.
type Engine struct {
	store    store.Store
	logger   *zap.Logger
	writerMu sync.Mutex
}

// New builds a chain engine over st.
func New(st store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// Init inserts the canonical genesis block if the store is empty.
func (e *Engine) Init(ctx context.Context) error {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	_, ok, err := e.store.LastIndex(ctx)
	if err != nil {
		return fmt.Errorf("ledger: check store emptiness: %w", err)
	}
	if ok {
		return nil
	}

	genesis := e.buildGenesis()
	if err := e.store.Insert(ctx, genesis); err != nil {
		return fmt.Errorf("ledger: insert genesis: %w", err)
	}
	e.logger.Info("inserted genesis block", zap.String("hash", genesis.Hash))
	return nil
}

func (e *Engine) buildGenesis() store.Block {
	return store.Block{
		Index:        0,
		Timestamp:    GenesisTimestamp,
		Data:         genesisData,
		PreviousHash: genesisPrevious,
		Hash:         chainhash.HashBlock(0, GenesisTimestamp, genesisData, genesisPrevious),
	}
}

// Latest returns the highest-index block.
func (e *Engine) Latest(ctx context.Context) (store.Block, error) {
	idx, ok, err := e.store.LastIndex(ctx)
	if err != nil {
		return store.Block{}, fmt.Errorf("ledger: read last index: %w", err)
	}
	if !ok {
		return store.Block{}, fmt.Errorf("ledger: %w: chain not initialized", ErrChainInconsistency)
	}
	b, found, err := e.store.Get(ctx, idx)
	if err != nil {
		return store.Block{}, fmt.Errorf("ledger: read latest block: %w", err)
	}
	if !found {
		return store.Block{}, fmt.Errorf("ledger: %w: last index %d missing from store", ErrChainInconsistency, idx)
	}
	return b, nil
}

// Append computes the next block from reading, links it to the current
// latest block, and inserts it.
func (e *Engine) Append(ctx context.Context, reading SensorReading) (store.Block, error) {
	if err := reading.validate(); err != nil {
		return store.Block{}, err
	}
	data, err := json.Marshal(reading)
	if err != nil {
		return store.Block{}, fmt.Errorf("%w: marshal reading: %v", ErrInvalidPayload, err)
	}

	e.writerMu.Lock()
	defer e.writerMu.Unlock()

	latest, err := e.Latest(ctx)
	if err != nil {
		return store.Block{}, err
	}

	index := latest.Index + 1
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	block := store.Block{
		Index:        index,
		Timestamp:    timestamp,
		Data:         string(data),
		PreviousHash: latest.Hash,
		Hash:         chainhash.HashBlock(index, timestamp, string(data), latest.Hash),
	}

	if err := e.store.Insert(ctx, block); err != nil {
		if errors.Is(err, store.ErrDuplicateIndex) || errors.Is(err, store.ErrHashCollision) {
			return store.Block{}, fmt.Errorf("%w: %v", ErrStoreConflict, err)
		}
		return store.Block{}, fmt.Errorf("ledger: insert appended block: %w", err)
	}

	e.logger.Info("appended block", zap.Int64("index", block.Index), zap.String("hash", block.Hash))
	return block, nil
}

// GetChain streams the chain held in the main table, re-verifying I2-I4
// on the fly. It starts at genesis, or after pruning at the oldest
// block not yet archived; indices are checked to be consecutive from
// that first block, whose link into the archive is not checked.
func (e *Engine) GetChain(ctx context.Context) ([]store.Block, error) {
	idx, ok, err := e.store.LastIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: read last index: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("ledger: %w: chain not initialized", ErrChainInconsistency)
	}

	blocks, err := e.store.Range(ctx, 0, idx+1)
	if err != nil {
		return nil, fmt.Errorf("ledger: read chain range: %w", err)
	}

	var base int64
	if len(blocks) > 0 {
		base = blocks[0].Index
	}
	for i, b := range blocks {
		if b.Index != base+int64(i) {
			return nil, fmt.Errorf("ledger: %w: index %d out of sequence (got %d)", ErrChainInconsistency, base+int64(i), b.Index)
		}
		if i > 0 && b.PreviousHash != blocks[i-1].Hash {
			return nil, fmt.Errorf("ledger: %w: block %d does not link to block %d", ErrChainInconsistency, i, i-1)
		}
		if chainhash.HashBlock(b.Index, b.Timestamp, b.Data, b.PreviousHash) != b.Hash {
			return nil, fmt.Errorf("ledger: %w: block %d hash does not match its contents", ErrChainInconsistency, i)
		}
	}
	return blocks, nil
}

// WithWriterLock runs fn while holding the chain-writer lock. It exists
// so the pruning engine (C8) can serialize its archive migration against
// concurrent append/replace without internal/ledger importing
// internal/prune.
func (e *Engine) WithWriterLock(ctx context.Context, fn func(ctx context.Context) error) error {
	e.writerMu.Lock()
	defer e.writerMu.Unlock()
	return fn(ctx)
}
