package idl

import "errors"

// Coerce validates v against t and returns the value in t's canonical
// form. Naturals are converted between Nat and Nat64 when the target
// can hold them; a Nat that does not fit a Nat64 is an ErrOverflow.
// Every failure is an *EncodeError.
func Coerce(t *Type, v Value) (Value, error) {
	return coerce(Root, t, v)
}

// Check reports whether v conforms to t.
func Check(t *Type, v Value) error {
	_, err := coerce(Root, t, v)
	return err
}

// CoerceTuple coerces an argument or result list.
func CoerceTuple(ts []*Type, vs []Value) ([]Value, error) {
	if len(ts) != len(vs) {
		return nil, NewEncodeError(Root, ErrTypeMismatch, "want %d values, got %d", len(ts), len(vs))
	}
	out := make([]Value, len(vs))
	for i := range ts {
		c, err := coerce(IndexPath("", i), ts[i], vs[i])
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func coerce(path string, t *Type, v Value) (Value, error) {
	switch t.Kind() {
	case KindText:
		if v.kind != KindText {
			return Value{}, mismatch(path, t, v)
		}
		return v, nil

	case KindNat:
		switch v.kind {
		case KindNat:
			if v.nat.Sign() < 0 {
				return Value{}, NewEncodeError(path, ErrNegative, "%s", v.nat)
			}
			return v, nil
		case KindNat64:
			return NatUint64(v.nat64), nil
		}
		return Value{}, mismatch(path, t, v)

	case KindNat64:
		switch v.kind {
		case KindNat64:
			return v, nil
		case KindNat:
			n, err := Uint64(v.nat)
			if err != nil {
				return Value{}, &EncodeError{Path: path, Err: unwrapCause(err), Detail: "value " + v.nat.String() + " does not fit nat64"}
			}
			return Nat64Value(n), nil
		}
		return Value{}, mismatch(path, t, v)

	case KindOpt:
		if v.kind != KindOpt {
			return Value{}, mismatch(path, t, v)
		}
		inner, ok := v.Option()
		if !ok {
			return None(), nil
		}
		c, err := coerce(path+"?", t.elem, inner)
		if err != nil {
			return Value{}, err
		}
		return Some(c), nil

	case KindVec:
		if v.kind != KindVec {
			return Value{}, mismatch(path, t, v)
		}
		out := make([]Value, len(v.elems))
		for i, e := range v.elems {
			c, err := coerce(IndexPath(path, i), t.elem, e)
			if err != nil {
				return Value{}, err
			}
			out[i] = c
		}
		return Value{kind: KindVec, elems: out}, nil

	case KindRecord:
		if v.kind != KindRecord {
			return Value{}, mismatch(path, t, v)
		}
		for _, f := range v.fields {
			if _, ok := t.Field(f.Label); !ok {
				return Value{}, NewEncodeError(FieldPath(path, f.Label), ErrTypeMismatch, "field not declared by %s", t)
			}
		}
		out := make([]FieldValue, len(t.fields))
		for i, f := range t.fields {
			fv, ok := v.Field(f.Label)
			if !ok {
				return Value{}, NewEncodeError(FieldPath(path, f.Label), ErrMissingField, "")
			}
			c, err := coerce(FieldPath(path, f.Label), f.Type, fv)
			if err != nil {
				return Value{}, err
			}
			out[i] = FieldValue{Label: f.Label, Value: c}
		}
		return Value{kind: KindRecord, fields: out}, nil

	case KindVariant:
		tag, payload, ok := v.Tag()
		if !ok {
			return Value{}, mismatch(path, t, v)
		}
		ft, ok := t.Field(tag)
		if !ok {
			return Value{}, NewEncodeError(FieldPath(path, tag), ErrUnknownVariantTag, "declared %s", t)
		}
		c, err := coerce(FieldPath(path, tag), ft, payload)
		if err != nil {
			return Value{}, err
		}
		return VariantValue(tag, c), nil
	}
	return Value{}, NewEncodeError(path, ErrTypeMismatch, "invalid type")
}

func mismatch(path string, t *Type, v Value) *EncodeError {
	return NewEncodeError(path, ErrTypeMismatch, "want %s, got %s", t.Kind(), v.Kind())
}

// unwrapCause returns the sentinel behind a narrowing error.
func unwrapCause(err error) error {
	for _, s := range []error{ErrOverflow, ErrNegative} {
		if errors.Is(err, s) {
			return s
		}
	}
	return err
}
