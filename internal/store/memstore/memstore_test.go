package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/validexlabs/sensorledger/internal/store"
)

func TestInsertRejectsDuplicateIndex(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Insert(ctx, store.Block{Index: 0, Hash: "a"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(ctx, store.Block{Index: 0, Hash: "b"}); !errors.Is(err, store.ErrDuplicateIndex) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateIndex", err)
	}
}

func TestInsertRejectsHashCollision(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Insert(ctx, store.Block{Index: 0, Hash: "same"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(ctx, store.Block{Index: 1, Hash: "same"}); !errors.Is(err, store.ErrHashCollision) {
		t.Fatalf("Insert() error = %v, want ErrHashCollision", err)
	}
}

func TestDeleteAboveRemovesSuffix(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := int64(0); i < 5; i++ {
		if err := s.Insert(ctx, store.Block{Index: i, Hash: string(rune('a' + i))}); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	if err := s.DeleteAbove(ctx, 2); err != nil {
		t.Fatalf("DeleteAbove() error = %v", err)
	}

	idx, ok, err := s.LastIndex(ctx)
	if err != nil {
		t.Fatalf("LastIndex() error = %v", err)
	}
	if !ok || idx != 2 {
		t.Fatalf("LastIndex() = (%d, %v), want (2, true)", idx, ok)
	}
}

func TestArchiveBelowAndRestoreAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := int64(0); i < 10; i++ {
		if err := s.Insert(ctx, store.Block{Index: i, Hash: string(rune('a' + i)), Data: "sensor"}); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	if err := s.ArchiveBelow(ctx, 8); err != nil {
		t.Fatalf("ArchiveBelow() error = %v", err)
	}

	remaining, err := s.Range(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("len(remaining) = %d, want 2", len(remaining))
	}

	results, err := s.ArchiveSearch(ctx, "sensor")
	if err != nil {
		t.Fatalf("ArchiveSearch() error = %v", err)
	}
	if len(results) != 8 {
		t.Fatalf("len(results) = %d, want 8", len(results))
	}

	if err := s.RestoreAll(ctx); err != nil {
		t.Fatalf("RestoreAll() error = %v", err)
	}
	full, err := s.Range(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Range() after restore error = %v", err)
	}
	if len(full) != 10 {
		t.Fatalf("len(full) = %d, want 10", len(full))
	}
}

func TestArchiveCompactOlderThan(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.archive[0] = store.ArchivedBlock{Block: store.Block{Index: 0}, ArchivedAt: time.Now().Add(-48 * time.Hour)}
	s.archive[1] = store.ArchivedBlock{Block: store.Block{Index: 1}, ArchivedAt: time.Now()}

	if err := s.ArchiveCompactOlderThan(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("ArchiveCompactOlderThan() error = %v", err)
	}

	if _, ok, _ := s.ArchiveGet(ctx, 0); ok {
		t.Fatal("expected archive row 0 to be compacted away")
	}
	if _, ok, _ := s.ArchiveGet(ctx, 1); !ok {
		t.Fatal("expected archive row 1 to survive compaction")
	}
}

func TestCloseIsNoop(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
