// Package memstore is an in-memory store.Store used by package tests
// across internal/ledger, internal/coordinator, and internal/prune so
// those packages can exercise real store semantics (duplicate/hash
// rejection, atomic deleteAbove, archive move) without a ClickHouse
// container.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/validexlabs/sensorledger/internal/store"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu      sync.Mutex
	blocks  map[int64]store.Block
	archive map[int64]store.ArchivedBlock
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		blocks:  make(map[int64]store.Block),
		archive: make(map[int64]store.ArchivedBlock),
	}
}

func (s *Store) LastIndex(ctx context.Context) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.blocks) == 0 {
		return 0, false, nil
	}
	var max int64
	first := true
	for idx := range s.blocks {
		if first || idx > max {
			max = idx
			first = false
		}
	}
	return max, true, nil
}

func (s *Store) Get(ctx context.Context, index int64) (store.Block, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blocks[index]
	return b, ok, nil
}

func (s *Store) Range(ctx context.Context, lo, hi int64) ([]store.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Block
	for idx, b := range s.blocks {
		if idx >= lo && idx < hi {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *Store) Insert(ctx context.Context, b store.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocks[b.Index]; ok {
		return store.ErrDuplicateIndex
	}
	for _, existing := range s.blocks {
		if existing.Hash == b.Hash {
			return store.ErrHashCollision
		}
	}
	s.blocks[b.Index] = b
	return nil
}

func (s *Store) DeleteAbove(ctx context.Context, i int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx := range s.blocks {
		if idx > i {
			delete(s.blocks, idx)
		}
	}
	return nil
}

func (s *Store) ArchiveBelow(ctx context.Context, i int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for idx, b := range s.blocks {
		if idx < i {
			s.archive[idx] = store.ArchivedBlock{Block: b, ArchivedAt: now}
			delete(s.blocks, idx)
		}
	}
	return nil
}

func (s *Store) RestoreAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, ab := range s.archive {
		s.blocks[idx] = ab.Block
	}
	s.archive = make(map[int64]store.ArchivedBlock)
	return nil
}

func (s *Store) ArchiveGet(ctx context.Context, index int64) (store.ArchivedBlock, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ab, ok := s.archive[index]
	return ab, ok, nil
}

func (s *Store) ArchiveSearch(ctx context.Context, substr string) ([]store.ArchivedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.ArchivedBlock
	for _, ab := range s.archive {
		if strings.Contains(ab.Data, substr) {
			out = append(out, ab)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (s *Store) ArchiveCompactOlderThan(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, ab := range s.archive {
		if ab.ArchivedAt.Before(t) {
			delete(s.archive, idx)
		}
	}
	return nil
}

// Close is a no-op: there is no backend connection to release.
func (s *Store) Close() error {
	return nil
}
