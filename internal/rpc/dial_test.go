package rpc

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/validexlabs/sensorledger/internal/rpc/wire"
)

// recordingPeerServer records which PeerServer method was invoked, so
// tests can assert on the wire call a client method actually makes
// rather than on a method-agnostic fake.
type recordingPeerServer struct {
	calls []string
}

func (r *recordingPeerServer) GetChain(ctx context.Context, _ *wire.GetChainRequest) (*wire.ChainResponse, error) {
	r.calls = append(r.calls, "GetChain")
	return &wire.ChainResponse{}, nil
}

func (r *recordingPeerServer) ReceiveBlock(ctx context.Context, _ *wire.Block) (*wire.ChainResponse, error) {
	r.calls = append(r.calls, "ReceiveBlock")
	return &wire.ChainResponse{}, nil
}

func (r *recordingPeerServer) AddBlock(ctx context.Context, _ *wire.Block) (*wire.ChainResponse, error) {
	r.calls = append(r.calls, "AddBlock")
	return &wire.ChainResponse{}, nil
}

// newBufconnClient starts an in-process PeerService server backed by
// srv and returns a Client wired to it over an in-memory bufconn dialer,
// bypassing mTLS material entirely since this test only cares about
// which RPC method a Client call invokes.
func newBufconnClient(t *testing.T, srv PeerServer) *Client {
	t.Helper()

	const bufSize = 1 << 20
	lis := bufconn.Listen(bufSize)
	t.Cleanup(func() { _ = lis.Close() })

	grpcServer := grpc.NewServer()
	RegisterPeerServiceServer(grpcServer, srv)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{conns: map[string]*grpc.ClientConn{"bufnet": cc}}
}

func TestClientBroadcastCallsAddBlockNotReceiveBlock(t *testing.T) {
	srv := &recordingPeerServer{}
	c := newBufconnClient(t, srv)

	if err := c.Broadcast(context.Background(), "bufnet", wire.Block{Index: 1}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	if len(srv.calls) != 1 || srv.calls[0] != "AddBlock" {
		t.Fatalf("Broadcast() invoked %v, want exactly one AddBlock call", srv.calls)
	}
}

func TestClientFetchChainCallsGetChain(t *testing.T) {
	srv := &recordingPeerServer{}
	c := newBufconnClient(t, srv)

	if _, err := c.FetchChain(context.Background(), "bufnet"); err != nil {
		t.Fatalf("FetchChain() error = %v", err)
	}

	if len(srv.calls) != 1 || srv.calls[0] != "GetChain" {
		t.Fatalf("FetchChain() invoked %v, want exactly one GetChain call", srv.calls)
	}
}
