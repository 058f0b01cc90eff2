// Package local provides an in-process bridge.Transport.
//
// For backends compiled into the same binary as their caller, this
// adapter hands encoded calls straight to a server.Server. By default
// messages are passed by reference with no serialization overhead;
// WithSerialization pushes every message through the binary codec, as
// a network transport would.
package local

import (
	"context"
	"fmt"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/server"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Compile-time interface check.
var _ bridge.Transport = (*Transport)(nil)

// Transport calls a server.Server in the same process.
type Transport struct {
	srv       *server.Server
	serialize bool
}

// Option configures a Transport.
type Option func(*Transport)

// WithSerialization marshals requests and responses to bytes and back
// on every call.
func WithSerialization() Option {
	return func(t *Transport) { t.serialize = true }
}

// NewTransport creates an in-process transport in front of srv.
func NewTransport(srv *server.Server, opts ...Option) *Transport {
	t := &Transport{srv: srv}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewProxy wires backend b to a client proxy through an in-process
// transport.
func NewProxy(b bridge.Backend, opts ...Option) (*client.Proxy, error) {
	srv, err := server.New(b)
	if err != nil {
		return nil, err
	}
	return client.New(NewTransport(srv, opts...))
}

func (t *Transport) Call(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.serialize {
		var err error
		if args, err = roundTrip(args); err != nil {
			return nil, fmt.Errorf("local: request: %w", err)
		}
	}
	resp, err := t.srv.Handle(ctx, procedure, args)
	if err != nil {
		return nil, err
	}
	if t.serialize {
		if resp, err = roundTrip(resp); err != nil {
			return nil, fmt.Errorf("local: response: %w", err)
		}
	}
	return resp, nil
}

func (t *Transport) Close() error { return nil }

// Server returns the underlying server for advanced use cases.
func (t *Transport) Server() *server.Server {
	return t.srv
}

func roundTrip(m *wire.Message) (*wire.Message, error) {
	data, err := wire.Marshal(m)
	if err != nil {
		return nil, err
	}
	return wire.Unmarshal(data)
}
