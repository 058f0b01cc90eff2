package idl

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Value is a dynamically typed value of the algebra. Values are
// immutable; accessors return copies of any shared state.
type Value struct {
	kind   Kind
	text   string
	nat    *big.Int
	nat64  uint64
	elems  []Value
	fields []FieldValue // records sorted by label, variants hold one
}

// FieldValue is a labelled member of a record or variant value.
type FieldValue struct {
	Label string
	Value Value
}

// FV is shorthand for building a FieldValue.
func FV(label string, v Value) FieldValue { return FieldValue{Label: label, Value: v} }

func TextValue(s string) Value { return Value{kind: KindText, text: s} }

// NatValue wraps an unbounded natural. A nil n is zero.
func NatValue(n *big.Int) Value {
	v := Value{kind: KindNat, nat: new(big.Int)}
	if n != nil {
		v.nat.Set(n)
	}
	return v
}

// NatUint64 is a Nat holding a value that happens to fit 64 bits.
func NatUint64(n uint64) Value {
	return Value{kind: KindNat, nat: new(big.Int).SetUint64(n)}
}

func Nat64Value(n uint64) Value { return Value{kind: KindNat64, nat64: n} }

// None is an absent optional.
func None() Value { return Value{kind: KindOpt} }

// Some is a present optional.
func Some(v Value) Value { return Value{kind: KindOpt, elems: []Value{v}} }

// VecValue builds a sequence. An empty call yields an empty, non-nil sequence.
func VecValue(elems ...Value) Value {
	out := make([]Value, len(elems))
	copy(out, elems)
	return Value{kind: KindVec, elems: out}
}

// RecordValue builds a record. Panics on duplicate labels.
func RecordValue(fields ...FieldValue) Value {
	out := make([]FieldValue, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	for i := 1; i < len(out); i++ {
		if out[i-1].Label == out[i].Label {
			panic(fmt.Sprintf("idl: duplicate record field %q", out[i].Label))
		}
	}
	return Value{kind: KindRecord, fields: out}
}

// VariantValue builds a variant carrying tag.
func VariantValue(tag string, v Value) Value {
	return Value{kind: KindVariant, fields: []FieldValue{{Label: tag, Value: v}}}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsNat returns a copy of a Nat's magnitude.
func (v Value) AsNat() (*big.Int, bool) {
	if v.kind != KindNat {
		return nil, false
	}
	return new(big.Int).Set(v.nat), true
}

func (v Value) AsNat64() (uint64, bool) {
	return v.nat64, v.kind == KindNat64
}

// Option returns the payload of an optional and whether it is present.
func (v Value) Option() (Value, bool) {
	if v.kind != KindOpt || len(v.elems) == 0 {
		return Value{}, false
	}
	return v.elems[0], true
}

// Elems returns the elements of a sequence. Never nil for a sequence.
func (v Value) Elems() []Value {
	if v.kind != KindVec {
		return nil
	}
	out := make([]Value, len(v.elems))
	copy(out, v.elems)
	return out
}

// Len is the number of elements of a sequence or optional.
func (v Value) Len() int { return len(v.elems) }

// Field looks up a record field.
func (v Value) Field(label string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}
	i := sort.Search(len(v.fields), func(i int) bool { return v.fields[i].Label >= label })
	if i < len(v.fields) && v.fields[i].Label == label {
		return v.fields[i].Value, true
	}
	return Value{}, false
}

// Fields returns record fields sorted by label, or the single variant field.
func (v Value) Fields() []FieldValue {
	out := make([]FieldValue, len(v.fields))
	copy(out, v.fields)
	return out
}

// Tag returns the tag and payload of a variant. ok is false for
// non-variant values.
func (v Value) Tag() (tag string, payload Value, ok bool) {
	if v.kind != KindVariant || len(v.fields) != 1 {
		return "", Value{}, false
	}
	return v.fields[0].Label, v.fields[0].Value, true
}

// ValueEqual reports whether two values are deeply equal.
func ValueEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindText:
		return a.text == b.text
	case KindNat:
		return a.nat.Cmp(b.nat) == 0
	case KindNat64:
		return a.nat64 == b.nat64
	case KindOpt, KindVec:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !ValueEqual(a.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	case KindRecord, KindVariant:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Label != b.fields[i].Label || !ValueEqual(a.fields[i].Value, b.fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindText:
		sb.WriteString(strconv.Quote(v.text))
	case KindNat:
		sb.WriteString(v.nat.String())
	case KindNat64:
		sb.WriteString(strconv.FormatUint(v.nat64, 10))
		sb.WriteString(" : nat64")
	case KindOpt:
		if len(v.elems) == 0 {
			sb.WriteString("null")
			return
		}
		sb.WriteString("opt ")
		v.elems[0].write(sb)
	case KindVec:
		sb.WriteString("vec {")
		for i, e := range v.elems {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			e.write(sb)
		}
		sb.WriteString(" }")
	case KindRecord, KindVariant:
		sb.WriteString(v.kind.String())
		sb.WriteString(" {")
		for i, f := range v.fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			sb.WriteString(f.Label)
			sb.WriteString(" = ")
			f.Value.write(sb)
		}
		sb.WriteString(" }")
	default:
		sb.WriteString("invalid")
	}
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// Uint64 narrows an unbounded natural to 64 bits, failing with
// ErrOverflow instead of truncating.
func Uint64(n *big.Int) (uint64, error) {
	if n == nil {
		return 0, nil
	}
	if n.Sign() < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNegative, n)
	}
	if n.Cmp(maxUint64) > 0 {
		return 0, fmt.Errorf("%w: %s exceeds 2^64-1", ErrOverflow, n)
	}
	return n.Uint64(), nil
}
