package prune

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/store/memstore"
)

type noopMetrics struct{}

func (noopMetrics) Observe(operation string, err error, started time.Time) {}
func (noopMetrics) AddArchived(n int)                                      {}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *ledger.Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ledgerEngine := ledger.New(st, zap.NewNop())
	if err := ledgerEngine.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	engine := New(ledgerEngine, st, noopMetrics{}, zap.NewNop(), opts...)
	return engine, ledgerEngine, st
}

func appendReadings(t *testing.T, e *ledger.Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.Append(context.Background(), ledger.SensorReading{
			SensorID:  "validator-01",
			Value:     float64(i),
			Timestamp: "2024-01-01T00:00:00.000Z",
		}); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
}

func TestCheckAndRunSkipsBelowThreshold(t *testing.T) {
	engine, ledgerEngine, _ := newTestEngine(t, WithPruningThreshold(1000))
	appendReadings(t, ledgerEngine, 10) // + genesis = 11 blocks, well under threshold

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("CheckAndRun() error = %v", err)
	}
	chain, err := ledgerEngine.GetChain(context.Background())
	if err != nil {
		t.Fatalf("GetChain() error = %v", err)
	}
	if len(chain) != 11 {
		t.Fatalf("len(chain) = %d, want 11 (no pruning should have occurred)", len(chain))
	}
}

func TestCheckAndRunArchivesOldestEightyPercent(t *testing.T) {
	engine, ledgerEngine, st := newTestEngine(t,
		WithPruningThreshold(1000),
		WithChunkSize(50),
	)
	appendReadings(t, ledgerEngine, 1199) // + genesis = 1200 blocks total (spec.md S6)

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("CheckAndRun() error = %v", err)
	}

	chain, err := ledgerEngine.GetChain(context.Background())
	if err != nil {
		t.Fatalf("GetChain() after prune error = %v", err)
	}
	if len(chain) != 240 {
		t.Fatalf("main table len = %d, want 240 newest blocks", len(chain))
	}
	if chain[0].Index != 960 {
		t.Fatalf("main table oldest surviving index = %d, want 960", chain[0].Index)
	}

	archived, err := st.ArchiveSearch(context.Background(), "")
	if err != nil {
		t.Fatalf("ArchiveSearch() error = %v", err)
	}
	if len(archived) != 960 {
		t.Fatalf("archive len = %d, want 960", len(archived))
	}
}

func TestCheckAndRunRespectsArchiveIntervalCooldown(t *testing.T) {
	engine, ledgerEngine, _ := newTestEngine(t,
		WithPruningThreshold(100),
		WithArchiveInterval(time.Hour),
		WithChunkSize(50),
	)
	appendReadings(t, ledgerEngine, 200)

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("first CheckAndRun() error = %v", err)
	}
	chainAfterFirst, err := ledgerEngine.GetChain(context.Background())
	if err != nil {
		t.Fatalf("GetChain() error = %v", err)
	}

	appendReadings(t, ledgerEngine, 900) // well past threshold again

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("second CheckAndRun() error = %v", err)
	}
	chainAfterSecond, err := ledgerEngine.GetChain(context.Background())
	if err != nil {
		t.Fatalf("GetChain() error = %v", err)
	}
	if len(chainAfterSecond) != len(chainAfterFirst)+900 {
		t.Fatalf("second prune ran inside the cooldown window: len = %d, want %d",
			len(chainAfterSecond), len(chainAfterFirst)+900)
	}
}

func TestCheckAndRunBailsWhenPruneBelowTooSmall(t *testing.T) {
	engine, ledgerEngine, st := newTestEngine(t, WithPruningThreshold(50))
	appendReadings(t, ledgerEngine, 100) // chainLength=101, pruneBelow=80 >= 100? no: floor(101*0.8)=80 < 100

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("CheckAndRun() error = %v", err)
	}
	archived, err := st.ArchiveSearch(context.Background(), "")
	if err != nil {
		t.Fatalf("ArchiveSearch() error = %v", err)
	}
	if len(archived) != 0 {
		t.Fatalf("archive len = %d, want 0 (pruneBelow below the 100 floor must bail)", len(archived))
	}
}

func TestRestoreReconstitutesFullChain(t *testing.T) {
	engine, ledgerEngine, _ := newTestEngine(t,
		WithPruningThreshold(1000),
		WithChunkSize(50),
	)
	appendReadings(t, ledgerEngine, 1199)

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("CheckAndRun() error = %v", err)
	}
	if err := engine.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	chain, err := ledgerEngine.GetChain(context.Background())
	if err != nil {
		t.Fatalf("GetChain() after restore error = %v", err)
	}
	if len(chain) != 1200 {
		t.Fatalf("len(chain) after restore = %d, want 1200", len(chain))
	}
	for i, b := range chain {
		if b.Index != int64(i) {
			t.Fatalf("restored chain out of order at %d: index %d", i, b.Index)
		}
	}
}

func TestArchiveSearchFindsMatchingData(t *testing.T) {
	engine, ledgerEngine, _ := newTestEngine(t, WithPruningThreshold(50), WithChunkSize(20))
	appendReadings(t, ledgerEngine, 200)

	if err := engine.CheckAndRun(context.Background()); err != nil {
		t.Fatalf("CheckAndRun() error = %v", err)
	}

	results, err := engine.ArchiveSearch(context.Background(), "validator-01")
	if err != nil {
		t.Fatalf("ArchiveSearch() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected archived sensor readings to match by substring")
	}
}
