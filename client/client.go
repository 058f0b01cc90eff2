// Package client provides the typed call binding for the bridge
// backend: a Proxy that encodes native arguments against the schema,
// hands them to a bridge.Transport and decodes the response.
package client

import (
	"context"
	"errors"
	"fmt"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Compile-time interface check.
var _ bridge.Backend = (*Proxy)(nil)

// binding is the shape a typed Proxy method assumes for a procedure.
type binding struct {
	name    string
	args    []*idl.Type
	results []*idl.Type
}

var bindings = []binding{
	{schema.GetCanisterEthAddress, nil, []*idl.Type{idl.Text()}},
	{schema.GetCount, nil, []*idl.Type{schema.CountResultType}},
	{schema.CallIncreaseCount, nil, []*idl.Type{schema.TextResultType}},
	{schema.CallDecreaseCount, nil, []*idl.Type{schema.TextResultType}},
	{schema.GetLatestEthereumBlock, nil, []*idl.Type{schema.BlockType}},
	{schema.GetStoredTransactionHashes, nil, []*idl.Type{idl.Vec(idl.Text())}},
	{schema.StoreTransactionHash, []*idl.Type{idl.Text()}, nil},
}

// Proxy implements bridge.Backend over a Transport.
//
// A Proxy holds no per-call state. It performs exactly one transport
// call per invocation and never retries, batches or caches.
type Proxy struct {
	transport bridge.Transport
	schema    *schema.Schema
	observer  Observer
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithSchema validates and dispatches against s instead of
// schema.Backend.
func WithSchema(s *schema.Schema) Option {
	return func(p *Proxy) { p.schema = s }
}

// WithObserver reports every finished call to o.
func WithObserver(o Observer) Option {
	return func(p *Proxy) { p.observer = o }
}

// New builds a Proxy over t. Every typed method is checked against the
// schema; a disagreement is returned as *schema.BindingError.
func New(t bridge.Transport, opts ...Option) (*Proxy, error) {
	if t == nil {
		return nil, errors.New("client: nil transport")
	}
	p := &Proxy{transport: t, schema: schema.Backend}
	for _, opt := range opts {
		opt(p)
	}
	for _, b := range bindings {
		if _, err := p.schema.Bind(b.name, b.args, b.results); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Schema returns the schema the proxy dispatches against.
func (p *Proxy) Schema() *schema.Schema { return p.schema }

// Close closes the underlying transport.
func (p *Proxy) Close() error { return p.transport.Close() }

// Call invokes name with args and returns the decoded result tuple.
//
// Failures are, in order of detection: *bridge.UnknownProcedureError
// and *bridge.EncodeError before the transport is touched, then
// *bridge.TransportError or *bridge.ProtocolDecodeError.
func (p *Proxy) Call(ctx context.Context, name string, args ...idl.Value) ([]idl.Value, error) {
	inv := newInvocation(name)
	out, err := p.call(ctx, inv, args)
	if p.observer != nil {
		p.observer.ObserveInvocation(inv)
	}
	return out, err
}

func (p *Proxy) call(ctx context.Context, inv *Invocation, args []idl.Value) ([]idl.Value, error) {
	name := inv.Procedure()
	sig, err := p.schema.Describe(name)
	if err != nil {
		inv.reject(err)
		return nil, err
	}
	req, err := wire.Encode(sig.Args, args)
	if err != nil {
		err = &bridge.EncodeError{Procedure: name, Err: err}
		inv.reject(err)
		return nil, err
	}

	inv.dispatch()
	resp, err := p.transport.Call(ctx, name, req)
	if err != nil {
		if _, ok := bridge.IsTransport(err); !ok {
			err = &bridge.TransportError{Procedure: name, Err: err}
		}
		inv.finish(StateTransportFailed, err)
		return nil, err
	}
	out, err := wire.Decode(sig.Results, resp)
	if err != nil {
		err = &bridge.ProtocolDecodeError{Procedure: name, Err: err}
		inv.finish(StateDecodeFailed, err)
		return nil, err
	}
	inv.finish(StateDecoded, nil)
	return out, nil
}

// invoke calls a single-result procedure and converts the result.
func invoke[T any](ctx context.Context, p *Proxy, name string, conv func(idl.Value) (T, error), args ...idl.Value) (T, error) {
	var zero T
	out, err := p.Call(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, &bridge.ProtocolDecodeError{
			Procedure: name,
			Err:       fmt.Errorf("%w: want 1 result, got %d", idl.ErrMalformed, len(out)),
		}
	}
	v, err := conv(out[0])
	if err != nil {
		return zero, &bridge.ProtocolDecodeError{Procedure: name, Err: err}
	}
	return v, nil
}

func (p *Proxy) GetCanisterEthAddress(ctx context.Context) (string, error) {
	return invoke(ctx, p, schema.GetCanisterEthAddress, func(v idl.Value) (string, error) {
		return types.TextFromValue(idl.Root, v)
	})
}

func (p *Proxy) GetCount(ctx context.Context) (types.CountOutcome, error) {
	return invoke(ctx, p, schema.GetCount, types.CountOutcomeFromValue)
}

func (p *Proxy) CallIncreaseCount(ctx context.Context) (types.TextOutcome, error) {
	return invoke(ctx, p, schema.CallIncreaseCount, types.TextOutcomeFromValue)
}

func (p *Proxy) CallDecreaseCount(ctx context.Context) (types.TextOutcome, error) {
	return invoke(ctx, p, schema.CallDecreaseCount, types.TextOutcomeFromValue)
}

func (p *Proxy) GetLatestEthereumBlock(ctx context.Context) (types.Block, error) {
	return invoke(ctx, p, schema.GetLatestEthereumBlock, types.BlockFromValue)
}

func (p *Proxy) GetStoredTransactionHashes(ctx context.Context) ([]string, error) {
	return invoke(ctx, p, schema.GetStoredTransactionHashes, func(v idl.Value) ([]string, error) {
		return types.TextsFromValue(idl.Root, v)
	})
}

func (p *Proxy) StoreTransactionHash(ctx context.Context, hash string) error {
	_, err := p.Call(ctx, schema.StoreTransactionHash, idl.TextValue(hash))
	return err
}
