package wire

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// The JSON form follows the shape browser agents hand to UI code:
// records are objects, variants single-key objects, optionals []
// or [x], sequences arrays, and naturals decimal strings so that
// values beyond 2^53 survive JavaScript.

// ToJSON coerces v against t and returns a tree ready for
// json.Marshal.
func ToJSON(t *idl.Type, v idl.Value) (any, error) {
	c, err := idl.Coerce(t, v)
	if err != nil {
		return nil, err
	}
	return toJSON(c), nil
}

// MarshalJSON renders a single value.
func MarshalJSON(t *idl.Type, v idl.Value) ([]byte, error) {
	tree, err := ToJSON(t, v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// MarshalTupleJSON renders a value tuple as a JSON array.
func MarshalTupleJSON(ts []*idl.Type, vs []idl.Value) ([]byte, error) {
	coerced, err := idl.CoerceTuple(ts, vs)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(coerced))
	for i, v := range coerced {
		out[i] = toJSON(v)
	}
	return json.Marshal(out)
}

func toJSON(v idl.Value) any {
	switch v.Kind() {
	case idl.KindText:
		s, _ := v.AsText()
		return s
	case idl.KindNat:
		n, _ := v.AsNat()
		return n.String()
	case idl.KindNat64:
		n, _ := v.AsNat64()
		return strconv.FormatUint(n, 10)
	case idl.KindOpt:
		if inner, ok := v.Option(); ok {
			return []any{toJSON(inner)}
		}
		return []any{}
	case idl.KindVec:
		elems := v.Elems()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = toJSON(e)
		}
		return out
	case idl.KindRecord, idl.KindVariant:
		out := make(map[string]any)
		for _, f := range v.Fields() {
			out[f.Label] = toJSON(f.Value)
		}
		return out
	}
	return nil
}

// UnmarshalJSON parses a single value against t. Failures are
// *idl.DecodeError with the same causes as Decode.
func UnmarshalJSON(t *idl.Type, data []byte) (idl.Value, error) {
	tree, err := parseJSON(data)
	if err != nil {
		return idl.Value{}, err
	}
	return fromJSON(idl.Root, t, tree)
}

// UnmarshalTupleJSON parses a JSON array into a value tuple. An empty
// body or null is accepted as the empty tuple.
func UnmarshalTupleJSON(ts []*idl.Type, data []byte) ([]idl.Value, error) {
	var tree any
	if len(bytes.TrimSpace(data)) > 0 {
		var err error
		if tree, err = parseJSON(data); err != nil {
			return nil, err
		}
	}
	var items []any
	switch x := tree.(type) {
	case nil:
	case []any:
		items = x
	default:
		return nil, idl.NewDecodeError(idl.Root, idl.ErrTypeMismatch, "want array of %d values", len(ts))
	}
	if len(items) != len(ts) {
		return nil, idl.NewDecodeError(idl.Root, idl.ErrMalformed, "want %d values, got %d", len(ts), len(items))
	}
	out := make([]idl.Value, len(ts))
	for i, t := range ts {
		v, err := fromJSON(idl.IndexPath("", i), t, items[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, idl.NewDecodeError(idl.Root, idl.ErrMalformed, "%v", err)
	}
	if dec.More() {
		return nil, idl.NewDecodeError(idl.Root, idl.ErrMalformed, "trailing data after JSON value")
	}
	return tree, nil
}

func fromJSON(path string, t *idl.Type, x any) (idl.Value, error) {
	switch t.Kind() {
	case idl.KindText:
		s, ok := x.(string)
		if !ok {
			return idl.Value{}, jsonMismatch(path, t, x)
		}
		return idl.TextValue(s), nil

	case idl.KindNat:
		n, err := parseNat(path, t, x)
		if err != nil {
			return idl.Value{}, err
		}
		return idl.NatValue(n), nil

	case idl.KindNat64:
		n, err := parseNat(path, t, x)
		if err != nil {
			return idl.Value{}, err
		}
		u, err := idl.Uint64(n)
		if err != nil {
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrOverflow, "%s does not fit nat64", n)
		}
		return idl.Nat64Value(u), nil

	case idl.KindOpt:
		arr, ok := x.([]any)
		if !ok {
			return idl.Value{}, jsonMismatch(path, t, x)
		}
		switch len(arr) {
		case 0:
			return idl.None(), nil
		case 1:
			inner, err := fromJSON(path+"?", t.Elem(), arr[0])
			if err != nil {
				return idl.Value{}, err
			}
			return idl.Some(inner), nil
		default:
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "optional with %d elements", len(arr))
		}

	case idl.KindVec:
		arr, ok := x.([]any)
		if !ok {
			return idl.Value{}, jsonMismatch(path, t, x)
		}
		elems := make([]idl.Value, len(arr))
		for i, e := range arr {
			v, err := fromJSON(idl.IndexPath(path, i), t.Elem(), e)
			if err != nil {
				return idl.Value{}, err
			}
			elems[i] = v
		}
		return idl.VecValue(elems...), nil

	case idl.KindRecord:
		obj, ok := x.(map[string]any)
		if !ok {
			return idl.Value{}, jsonMismatch(path, t, x)
		}
		fields := t.Fields()
		out := make([]idl.FieldValue, len(fields))
		for i, f := range fields {
			fp := idl.FieldPath(path, f.Label)
			raw, ok := obj[f.Label]
			if !ok {
				return idl.Value{}, idl.NewDecodeError(fp, idl.ErrMissingField, "")
			}
			v, err := fromJSON(fp, f.Type, raw)
			if err != nil {
				return idl.Value{}, err
			}
			out[i] = idl.FV(f.Label, v)
		}
		return idl.RecordValue(out...), nil

	case idl.KindVariant:
		obj, ok := x.(map[string]any)
		if !ok {
			return idl.Value{}, jsonMismatch(path, t, x)
		}
		if len(obj) != 1 {
			return idl.Value{}, idl.NewDecodeError(path, idl.ErrMalformed, "variant carries %d tags", len(obj))
		}
		for tag, raw := range obj {
			ft, ok := t.Field(tag)
			if !ok {
				return idl.Value{}, idl.NewDecodeError(idl.FieldPath(path, tag), idl.ErrUnknownVariantTag, "declared %s", t)
			}
			v, err := fromJSON(idl.FieldPath(path, tag), ft, raw)
			if err != nil {
				return idl.Value{}, err
			}
			return idl.VariantValue(tag, v), nil
		}
	}
	return idl.Value{}, idl.NewDecodeError(path, idl.ErrTypeMismatch, "invalid type")
}

func parseNat(path string, t *idl.Type, x any) (*big.Int, error) {
	var s string
	switch n := x.(type) {
	case string:
		s = n
	case json.Number:
		s = n.String()
	default:
		return nil, jsonMismatch(path, t, x)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, idl.NewDecodeError(path, idl.ErrMalformed, "%q is not a decimal natural", s)
	}
	if n.Sign() < 0 {
		return nil, idl.NewDecodeError(path, idl.ErrNegative, "%s", s)
	}
	return n, nil
}

func jsonMismatch(path string, t *idl.Type, x any) *idl.DecodeError {
	return idl.NewDecodeError(path, idl.ErrTypeMismatch, "want %s, got %s", t.Kind(), jsonKind(x))
}

func jsonKind(x any) string {
	switch x.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
