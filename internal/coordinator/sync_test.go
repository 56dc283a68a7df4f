package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/validexlabs/sensorledger/internal/ledger"
	"github.com/validexlabs/sensorledger/internal/peers"
	"github.com/validexlabs/sensorledger/internal/rpc/wire"
	"github.com/validexlabs/sensorledger/internal/store/memstore"
)

func appendN(t *testing.T, e *ledger.Engine, n int, salt string) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.Append(context.Background(), ledger.SensorReading{
			SensorID:  "validator-01",
			Value:     float64(i),
			Timestamp: "2024-01-01T00:0" + string(rune('1'+i%8)) + ":00.000Z",
		}); err != nil {
			t.Fatalf("Append(%s %d) error = %v", salt, i, err)
		}
	}
}

func TestSyncOnceAdoptsLongerValidRemote(t *testing.T) {
	local := ledger.New(memstore.New(), zap.NewNop())
	if err := local.Init(context.Background()); err != nil {
		t.Fatalf("local.Init() error = %v", err)
	}
	appendN(t, local, 2, "local")

	remote := ledger.New(memstore.New(), zap.NewNop())
	if err := remote.Init(context.Background()); err != nil {
		t.Fatalf("remote.Init() error = %v", err)
	}
	appendN(t, remote, 6, "remote")
	remoteChain, err := remote.GetChain(context.Background())
	if err != nil {
		t.Fatalf("remote.GetChain() error = %v", err)
	}
	remoteWire, err := wire.FromStoreSlice(remoteChain)
	if err != nil {
		t.Fatalf("wire.FromStoreSlice() error = %v", err)
	}

	client := &fakePeerClient{chains: map[string][]wire.Block{"peer-1": remoteWire}}
	peerSource := fakePeerSource{records: []peers.Record{{Address: "peer-1", ChainLength: 7}}}
	c := New(local, peerSource, client, noopMetrics{}, zap.NewNop())

	if err := c.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	got, err := local.GetChain(context.Background())
	if err != nil {
		t.Fatalf("local.GetChain() after sync error = %v", err)
	}
	if len(got) != len(remoteChain) {
		t.Fatalf("len(got) = %d, want %d (remote should have been adopted)", len(got), len(remoteChain))
	}
}

func TestSyncOnceIgnoresGenesisMismatchedRemote(t *testing.T) {
	local := ledger.New(memstore.New(), zap.NewNop())
	if err := local.Init(context.Background()); err != nil {
		t.Fatalf("local.Init() error = %v", err)
	}
	appendN(t, local, 1, "local")
	localChain, err := local.GetChain(context.Background())
	if err != nil {
		t.Fatalf("local.GetChain() error = %v", err)
	}

	foreignGenesisChain := []wire.Block{
		{Index: 0, Timestamp: "1999-01-01T00:00:00.000Z", Data: `{"message":"Genesis Block"}`, PreviousHash: "0", Hash: "not-the-local-genesis"},
		{Index: 1, Timestamp: "1999-01-01T00:01:00.000Z", Data: "{}", PreviousHash: "not-the-local-genesis", Hash: "whatever"},
		{Index: 2, Timestamp: "1999-01-01T00:02:00.000Z", Data: "{}", PreviousHash: "whatever", Hash: "whatever2"},
		{Index: 3, Timestamp: "1999-01-01T00:03:00.000Z", Data: "{}", PreviousHash: "whatever2", Hash: "whatever3"},
		{Index: 4, Timestamp: "1999-01-01T00:04:00.000Z", Data: "{}", PreviousHash: "whatever3", Hash: "whatever4"},
	}

	client := &fakePeerClient{chains: map[string][]wire.Block{"peer-1": foreignGenesisChain}}
	peerSource := fakePeerSource{records: []peers.Record{{Address: "peer-1", ChainLength: 5}}}
	c := New(local, peerSource, client, noopMetrics{}, zap.NewNop())

	if err := c.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce() error = %v", err)
	}

	got, err := local.GetChain(context.Background())
	if err != nil {
		t.Fatalf("local.GetChain() after sync error = %v", err)
	}
	if len(got) != len(localChain) {
		t.Fatalf("len(got) = %d, want %d (foreign-genesis remote must be discarded)", len(got), len(localChain))
	}
}

func TestSyncOnceRejectsConcurrentInvocation(t *testing.T) {
	local := ledger.New(memstore.New(), zap.NewNop())
	if err := local.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	blockingClient := &fakePeerClient{chains: map[string][]wire.Block{}}
	peerSource := fakePeerSource{}
	c := New(local, peerSource, blockingClient, noopMetrics{}, zap.NewNop())

	if !c.syncing.CompareAndSwap(false, true) {
		t.Fatal("setup: expected to acquire syncing flag")
	}
	defer c.syncing.Store(false)

	err := c.SyncOnce(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("SyncOnce() error = %v, want ErrSyncInProgress", err)
	}
}

func TestSyncOnceWatchdogReleasesLockOnTimeout(t *testing.T) {
	local := ledger.New(memstore.New(), zap.NewNop())
	if err := local.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	client := &blockingFetchClient{entered: make(chan struct{}), release: make(chan struct{})}
	peerSource := fakePeerSource{records: []peers.Record{{Address: "peer-1", ChainLength: 1}}}
	c := New(local, peerSource, client, noopMetrics{}, zap.NewNop(), WithSyncLockTimeout(10*time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SyncOnce(context.Background())
	}()
	defer func() {
		close(client.release)
		<-done
	}()

	// SyncOnce holds the flag while its only fetch is blocked.
	<-client.entered
	time.Sleep(30 * time.Millisecond)

	if c.syncing.Load() {
		t.Fatal("watchdog should have force-released the syncing flag")
	}
}

// blockingFetchClient keeps a sync cycle in flight: FetchChain signals
// entered, then blocks until release is closed.
type blockingFetchClient struct {
	fakePeerClient
	entered chan struct{}
	release chan struct{}
}

func (b *blockingFetchClient) FetchChain(ctx context.Context, address string) ([]wire.Block, error) {
	close(b.entered)
	<-b.release
	return nil, nil
}
