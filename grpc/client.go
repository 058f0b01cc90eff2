package bridgegrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Compile-time interface check.
var _ bridge.Transport = (*Client)(nil)

// Client implements bridge.Transport over gRPC using cramberry
// serialization. It is safe for concurrent use; calls are multiplexed
// over one connection.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote bridge backend.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error) {
	if args == nil {
		args = &wire.Message{}
	}
	resp := new(wire.Message)
	if err := c.cc.Invoke(ctx, FullMethod(procedure), args, resp, grpc.ForceCodec(CramberryCodec{})); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}
