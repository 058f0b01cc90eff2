// Package server provides the actor-side dispatcher: it decodes an
// encoded argument tuple against the schema, calls the matching
// bridge.Backend method and encodes its result.
//
// Transports (gRPC, in-process) sit in front of a Server; the backend
// behind it only ever sees native Go values.
package server

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

// ArgumentError reports an incoming argument tuple that does not
// conform to the declared argument types.
type ArgumentError struct {
	Procedure string
	Err       error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("server: %s arguments: %v", e.Procedure, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ResultError reports a backend result that cannot be encoded against
// the declared result types.
type ResultError struct {
	Procedure string
	Err       error
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("server: %s result: %v", e.Procedure, e.Err)
}

func (e *ResultError) Unwrap() error { return e.Err }

// IsArgument checks whether err is an ArgumentError and returns it.
func IsArgument(err error) (*ArgumentError, bool) {
	var e *ArgumentError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

type handler func(ctx context.Context, args []idl.Value) ([]idl.Value, error)

type route struct {
	args    []*idl.Type
	results []*idl.Type
	handle  handler
}

// Server routes encoded calls to a Backend. It holds no mutable state
// of its own and is safe for concurrent use if the backend is.
type Server struct {
	backend bridge.Backend
	schema  *schema.Schema
	routes  map[string]route
}

// Option configures a Server.
type Option func(*Server)

// WithSchema validates routes against s instead of schema.Backend.
func WithSchema(s *schema.Schema) Option {
	return func(srv *Server) { srv.schema = s }
}

// New creates a Server for b. Every route is checked against the
// schema; a disagreement is returned as *schema.BindingError.
func New(b bridge.Backend, opts ...Option) (*Server, error) {
	if b == nil {
		return nil, errors.New("server: nil backend")
	}
	s := &Server{backend: b, schema: schema.Backend}
	for _, opt := range opts {
		opt(s)
	}
	s.routes = make(map[string]route)
	for name, r := range s.table() {
		if _, err := s.schema.Bind(name, r.args, r.results); err != nil {
			return nil, err
		}
		s.routes[name] = r
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(b bridge.Backend, opts ...Option) *Server {
	s, err := New(b, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the schema the server was validated against.
func (s *Server) Schema() *schema.Schema { return s.schema }

// Backend returns the wrapped backend.
func (s *Server) Backend() bridge.Backend { return s.backend }

// Handle serves one encoded call. Errors are *bridge.UnknownProcedureError,
// *ArgumentError, *ResultError, or whatever the backend returned.
func (s *Server) Handle(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error) {
	sig, err := s.schema.Describe(procedure)
	if err != nil {
		return nil, err
	}
	r, ok := s.routes[procedure]
	if !ok {
		return nil, &bridge.UnknownProcedureError{Procedure: procedure}
	}
	in, err := wire.Decode(sig.Args, args)
	if err != nil {
		return nil, &ArgumentError{Procedure: procedure, Err: err}
	}
	out, err := r.handle(ctx, in)
	if err != nil {
		return nil, err
	}
	m, err := wire.Encode(sig.Results, out)
	if err != nil {
		return nil, &ResultError{Procedure: procedure, Err: err}
	}
	return m, nil
}

func one(v idl.Value) []idl.Value { return []idl.Value{v} }

// outcome encodes o, refusing the zero Outcome instead of panicking.
func outcome[T any](o types.Outcome[T], conv func(types.Outcome[T]) idl.Value) ([]idl.Value, error) {
	if o.Tag() != types.TagOk && o.Tag() != types.TagErr {
		return nil, errors.New("backend returned an outcome with no tag")
	}
	return one(conv(o)), nil
}

func (s *Server) table() map[string]route {
	b := s.backend
	text := []*idl.Type{idl.Text()}
	return map[string]route{
		schema.GetCanisterEthAddress: {results: text, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			addr, err := b.GetCanisterEthAddress(ctx)
			if err != nil {
				return nil, err
			}
			return one(idl.TextValue(addr)), nil
		}},
		schema.GetCount: {results: []*idl.Type{schema.CountResultType}, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			o, err := b.GetCount(ctx)
			if err != nil {
				return nil, err
			}
			return outcome(o, types.CountOutcomeValue)
		}},
		schema.CallIncreaseCount: {results: []*idl.Type{schema.TextResultType}, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			o, err := b.CallIncreaseCount(ctx)
			if err != nil {
				return nil, err
			}
			return outcome(o, types.TextOutcomeValue)
		}},
		schema.CallDecreaseCount: {results: []*idl.Type{schema.TextResultType}, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			o, err := b.CallDecreaseCount(ctx)
			if err != nil {
				return nil, err
			}
			return outcome(o, types.TextOutcomeValue)
		}},
		schema.GetLatestEthereumBlock: {results: []*idl.Type{schema.BlockType}, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			blk, err := b.GetLatestEthereumBlock(ctx)
			if err != nil {
				return nil, err
			}
			return one(blk.Value()), nil
		}},
		schema.GetStoredTransactionHashes: {results: []*idl.Type{idl.Vec(idl.Text())}, handle: func(ctx context.Context, _ []idl.Value) ([]idl.Value, error) {
			hashes, err := b.GetStoredTransactionHashes(ctx)
			if err != nil {
				return nil, err
			}
			return one(types.TextsValue(hashes)), nil
		}},
		schema.StoreTransactionHash: {args: text, handle: func(ctx context.Context, args []idl.Value) ([]idl.Value, error) {
			hash, _ := args[0].AsText()
			return nil, b.StoreTransactionHash(ctx, hash)
		}},
	}
}
