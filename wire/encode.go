package wire

import (
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// Encode coerces values against their declared types and flattens them
// into a Message. Any non-conforming value fails with *idl.EncodeError
// and nothing is produced.
func Encode(ts []*idl.Type, vs []idl.Value) (*Message, error) {
	coerced, err := idl.CoerceTuple(ts, vs)
	if err != nil {
		return nil, err
	}
	enc := &encoder{}
	m := &Message{Roots: make([]uint32, len(coerced))}
	for i, v := range coerced {
		m.Roots[i] = enc.put(v)
	}
	m.Nodes = enc.nodes
	return m, nil
}

type encoder struct {
	nodes []Node
}

func (e *encoder) put(v idl.Value) uint32 {
	idx := uint32(len(e.nodes))
	e.nodes = append(e.nodes, Node{})

	n := Node{Kind: uint32(v.Kind())}
	switch v.Kind() {
	case idl.KindText:
		n.Text, _ = v.AsText()
	case idl.KindNat:
		nat, _ := v.AsNat()
		n.Nat = nat.Bytes()
	case idl.KindNat64:
		n.Nat64, _ = v.AsNat64()
	case idl.KindOpt:
		if inner, ok := v.Option(); ok {
			n.Children = []uint32{e.put(inner)}
		}
	case idl.KindVec:
		elems := v.Elems()
		n.Children = make([]uint32, len(elems))
		for i, el := range elems {
			n.Children[i] = e.put(el)
		}
	case idl.KindRecord, idl.KindVariant:
		fields := v.Fields()
		n.Labels = make([]string, len(fields))
		n.Children = make([]uint32, len(fields))
		for i, f := range fields {
			n.Labels[i] = f.Label
			n.Children[i] = e.put(f.Value)
		}
	}
	e.nodes[idx] = n
	return idx
}
