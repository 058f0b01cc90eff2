package bridgetest

import (
	"context"
	"sync"
	"sync/atomic"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Compile-time interface check.
var _ bridge.Transport = (*Transport)(nil)

// Transport is a fake bridge.Transport for client tests. CallFn decides
// the response; it can return hand-built messages that no real server
// would send. Unconfigured, every call returns an empty result tuple.
type Transport struct {
	CallFn func(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error)

	Calls  atomic.Int64
	Closed atomic.Bool

	mu         sync.Mutex
	procedures []string
}

func (t *Transport) Call(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error) {
	t.Calls.Add(1)
	t.mu.Lock()
	t.procedures = append(t.procedures, procedure)
	t.mu.Unlock()
	if t.CallFn != nil {
		return t.CallFn(ctx, procedure, args)
	}
	return &wire.Message{}, nil
}

func (t *Transport) Close() error {
	t.Closed.Store(true)
	return nil
}

// Procedures returns the procedure names called so far, in order.
func (t *Transport) Procedures() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.procedures...)
}

// Respond returns a transport that answers every call with the
// encoding of vs against ts.
func Respond(ts []*idl.Type, vs ...idl.Value) *Transport {
	m := MustEncode(ts, vs...)
	return &Transport{CallFn: func(context.Context, string, *wire.Message) (*wire.Message, error) {
		return m, nil
	}}
}

// Fail returns a transport that fails every call with err.
func Fail(err error) *Transport {
	return &Transport{CallFn: func(context.Context, string, *wire.Message) (*wire.Message, error) {
		return nil, err
	}}
}

// MustEncode encodes vs against ts and panics on error.
func MustEncode(ts []*idl.Type, vs ...idl.Value) *wire.Message {
	m, err := wire.Encode(ts, vs)
	if err != nil {
		panic(err)
	}
	return m
}

// Without returns a copy of record v with label removed. It is used to
// build responses missing a required field.
func Without(v idl.Value, label string) idl.Value {
	var kept []idl.FieldValue
	for _, f := range v.Fields() {
		if f.Label != label {
			kept = append(kept, f)
		}
	}
	return idl.RecordValue(kept...)
}

// EncodeLoose encodes vs without checking them against any type, the
// way a misbehaving peer might.
func EncodeLoose(vs ...idl.Value) *wire.Message {
	m := &wire.Message{}
	var put func(v idl.Value) uint32
	put = func(v idl.Value) uint32 {
		idx := uint32(len(m.Nodes))
		m.Nodes = append(m.Nodes, wire.Node{Kind: uint32(v.Kind())})
		var labels []string
		var children []uint32
		switch v.Kind() {
		case idl.KindText:
			m.Nodes[idx].Text, _ = v.AsText()
		case idl.KindNat:
			n, _ := v.AsNat()
			m.Nodes[idx].Nat = n.Bytes()
		case idl.KindNat64:
			m.Nodes[idx].Nat64, _ = v.AsNat64()
		case idl.KindOpt:
			if inner, ok := v.Option(); ok {
				children = append(children, put(inner))
			}
		case idl.KindVec:
			for _, e := range v.Elems() {
				children = append(children, put(e))
			}
		case idl.KindRecord, idl.KindVariant:
			for _, f := range v.Fields() {
				labels = append(labels, f.Label)
				children = append(children, put(f.Value))
			}
		}
		m.Nodes[idx].Labels = labels
		m.Nodes[idx].Children = children
		return idx
	}
	for _, v := range vs {
		m.Roots = append(m.Roots, put(v))
	}
	return m
}
