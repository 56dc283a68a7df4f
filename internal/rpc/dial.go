package rpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/validexlabs/sensorledger/internal/rpc/wire"
)

// ClientTLSConfig names the materials a ledger-node dials its peers
// with: its own cert (peers verify it on the inbound leg) and the
// shared cluster CA (to verify the peer's server cert).
type ClientTLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// Client is a pooled, mutually authenticated connection to the peer
// fleet. One *grpc.ClientConn is kept per address and reused across
// calls, mirroring the long-lived connection reuse the teacher's own
// rpcclient package assumes (internal/pkg/btcd/rpcclient).
type Client struct {
	dialOpts []grpc.DialOption

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewClient builds a Client dialing with tlsCfg.
func NewClient(tlsCfg ClientTLSConfig) (*Client, error) {
	cert, err := tls.LoadX509KeyPair(tlsCfg.CertFile, tlsCfg.KeyFile)
	if err != nil {
		return nil, err
	}
	pool, err := loadCAPool(tlsCfg.CAFile)
	if err != nil {
		return nil, err
	}
	creds := credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	})
	return &Client{
		dialOpts: []grpc.DialOption{grpc.WithTransportCredentials(creds)},
		conns:    make(map[string]*grpc.ClientConn),
	}, nil
}

func (c *Client) connFor(address string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cc, ok := c.conns[address]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(address, c.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", address, err)
	}
	c.conns[address] = cc
	return cc, nil
}

// GetChain satisfies internal/peers.ChainClient: it returns only the
// chain length the prober needs, discarding the body.
func (c *Client) GetChain(ctx context.Context, address string) (int64, error) {
	cc, err := c.connFor(address)
	if err != nil {
		return 0, err
	}
	resp, err := NewPeerServiceClient(cc).GetChain(ctx, &wire.GetChainRequest{})
	if err != nil {
		return 0, err
	}
	return int64(len(resp.Chain)), nil
}

// FetchChain returns the peer's full chain, for internal/coordinator's
// sync and replace flow.
func (c *Client) FetchChain(ctx context.Context, address string) ([]wire.Block, error) {
	cc, err := c.connFor(address)
	if err != nil {
		return nil, err
	}
	resp, err := NewPeerServiceClient(cc).GetChain(ctx, &wire.GetChainRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Chain, nil
}

// Broadcast sends block to address via AddBlock, the gossip path a peer
// uses when it is not the block's author. AddBlock, not ReceiveBlock, is
// required here: it is idempotent on index (spec.md §4.6, P5), so
// redelivery of the same block by two different broadcasters (or a
// retried broadcast) succeeds instead of failing with InvalidArgument.
func (c *Client) Broadcast(ctx context.Context, address string, block wire.Block) error {
	cc, err := c.connFor(address)
	if err != nil {
		return err
	}
	_, err = NewPeerServiceClient(cc).AddBlock(ctx, &block)
	return err
}

// Close tears down every pooled connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for addr, cc := range c.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("rpc: close conn to %s: %w", addr, err)
		}
	}
	c.conns = make(map[string]*grpc.ClientConn)
	return firstErr
}

// dialTimeout is a handshake bound for lazily-established connections.
// Nothing in this package applies it: a first RPC is bounded only by the
// deadline of the context its caller passes.
const dialTimeout = 10 * time.Second
