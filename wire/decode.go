package wire

import (
	"math/big"
	"unicode/utf8"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// Decode rebuilds a value tuple from m, validating every node against
// the declared types. Failures are *idl.DecodeError:
//
//   - a record without a declared field is ErrMissingField (undeclared
//     extra fields are ignored);
//   - a variant whose tag is not declared is ErrUnknownVariantTag;
//   - a node of the wrong kind is ErrTypeMismatch;
//   - broken structure (bad indices, multi-element optionals, a
//     variant with zero or several tags) is ErrMalformed.
func Decode(ts []*idl.Type, m *Message) ([]idl.Value, error) {
	if m == nil {
		m = &Message{}
	}
	if len(m.Roots) != len(ts) {
		return nil, idl.NewDecodeError(idl.Root, idl.ErrMalformed, "want %d values, got %d", len(ts), len(m.Roots))
	}
	d := decoder{nodes: m.Nodes}
	out := make([]idl.Value, len(ts))
	for i, t := range ts {
		v, err := d.value(idl.IndexPath("", i), t, m.Roots[i], -1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type decoder struct {
	nodes []Node
}

func (d *decoder) value(path string, t *idl.Type, idx uint32, parent int) (idl.Value, error) {
	if int64(idx) >= int64(len(d.nodes)) {
		return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "node %d out of range", idx)
	}
	if int64(idx) <= int64(parent) {
		return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "node %d does not follow its parent %d", idx, parent)
	}
	n := &d.nodes[idx]
	if idl.Kind(n.Kind) != t.Kind() {
		return idl.Value{}, idl.NewDecodeError(path, idl.ErrTypeMismatch, "want %s, got %s", t.Kind(), idl.Kind(n.Kind))
	}
	self := int(idx)

	switch t.Kind() {
	case idl.KindText:
		if !utf8.ValidString(n.Text) {
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "text is not valid UTF-8")
		}
		return idl.TextValue(n.Text), nil

	case idl.KindNat:
		return idl.NatValue(new(big.Int).SetBytes(n.Nat)), nil

	case idl.KindNat64:
		return idl.Nat64Value(n.Nat64), nil

	case idl.KindOpt:
		switch len(n.Children) {
		case 0:
			return idl.None(), nil
		case 1:
			inner, err := d.value(path+"?", t.Elem(), n.Children[0], self)
			if err != nil {
				return idl.Value{}, err
			}
			return idl.Some(inner), nil
		default:
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "optional with %d elements", len(n.Children))
		}

	case idl.KindVec:
		elems := make([]idl.Value, len(n.Children))
		for i, c := range n.Children {
			v, err := d.value(idl.IndexPath(path, i), t.Elem(), c, self)
			if err != nil {
				return idl.Value{}, err
			}
			elems[i] = v
		}
		return idl.VecValue(elems...), nil

	case idl.KindRecord:
		if len(n.Labels) != len(n.Children) {
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "%d labels for %d fields", len(n.Labels), len(n.Children))
		}
		byLabel := make(map[string]uint32, len(n.Labels))
		for i, l := range n.Labels {
			if _, dup := byLabel[l]; dup {
				return idl.Value{}, idl.NewDecodeError(idl.FieldPath(path, l), idl.ErrMalformed, "duplicate field")
			}
			byLabel[l] = n.Children[i]
		}
		fields := t.Fields()
		out := make([]idl.FieldValue, len(fields))
		for i, f := range fields {
			fp := idl.FieldPath(path, f.Label)
			c, ok := byLabel[f.Label]
			if !ok {
				return idl.Value{}, idl.NewDecodeError(fp, idl.ErrMissingField, "")
			}
			v, err := d.value(fp, f.Type, c, self)
			if err != nil {
				return idl.Value{}, err
			}
			out[i] = idl.FV(f.Label, v)
		}
		return idl.RecordValue(out...), nil

	case idl.KindVariant:
		if len(n.Labels) != 1 || len(n.Children) != 1 {
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "variant carries %d tags", len(n.Labels))
		}
		tag := n.Labels[0]
		ft, ok := t.Field(tag)
		if !ok {
			return idl.Value{}, idl.NewDecodeError(idl.FieldPath(path, tag), idl.ErrUnknownVariantTag, "declared %s", t)
		}
		v, err := d.value(idl.FieldPath(path, tag), ft, n.Children[0], self)
		if err != nil {
			return idl.Value{}, err
		}
		return idl.VariantValue(tag, v), nil
	}
	return idl.Value{}, idl.NewDecodeError(path, idl.ErrTypeMismatch, "invalid type")
}
