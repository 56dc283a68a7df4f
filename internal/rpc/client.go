package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/validexlabs/sensorledger/internal/rpc/wire"
)

// PeerServiceClient is the client-side stub for PeerService, the
// hand-written equivalent of what protoc-gen-go-grpc would generate.
type PeerServiceClient struct {
	cc *grpc.ClientConn
}

// NewPeerServiceClient wraps an established connection.
func NewPeerServiceClient(cc *grpc.ClientConn) *PeerServiceClient {
	return &PeerServiceClient{cc: cc}
}

func (c *PeerServiceClient) GetChain(ctx context.Context, req *wire.GetChainRequest, opts ...grpc.CallOption) (*wire.ChainResponse, error) {
	out := new(wire.ChainResponse)
	opts = append(opts, grpc.CallContentSubtype(jsonCodecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetChain", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PeerServiceClient) ReceiveBlock(ctx context.Context, block *wire.Block, opts ...grpc.CallOption) (*wire.ChainResponse, error) {
	out := new(wire.ChainResponse)
	opts = append(opts, grpc.CallContentSubtype(jsonCodecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ReceiveBlock", block, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PeerServiceClient) AddBlock(ctx context.Context, block *wire.Block, opts ...grpc.CallOption) (*wire.ChainResponse, error) {
	out := new(wire.ChainResponse)
	opts = append(opts, grpc.CallContentSubtype(jsonCodecName))
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AddBlock", block, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
