// Package idl implements the closed type algebra used to describe the
// backend's remote procedures: text, unbounded and 64-bit naturals,
// optionals, sequences, records and variants.
//
// Types are immutable once constructed and compared structurally.
// Values are plain trees that mirror the type algebra; [Check] and
// [Coerce] relate the two.
package idl

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies a node of the type algebra.
type Kind uint32

const (
	KindInvalid Kind = iota
	KindText
	KindNat
	KindNat64
	KindOpt
	KindVec
	KindRecord
	KindVariant
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNat:
		return "nat"
	case KindNat64:
		return "nat64"
	case KindOpt:
		return "opt"
	case KindVec:
		return "vec"
	case KindRecord:
		return "record"
	case KindVariant:
		return "variant"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// Field is a labelled member of a record or variant type.
type Field struct {
	Label string
	Type  *Type
}

// F is shorthand for building a Field.
func F(label string, t *Type) Field { return Field{Label: label, Type: t} }

// Type is a type descriptor. The zero value is invalid; use the
// constructor functions.
type Type struct {
	kind   Kind
	elem   *Type
	fields []Field // sorted by label
}

var (
	textType  = &Type{kind: KindText}
	natType   = &Type{kind: KindNat}
	nat64Type = &Type{kind: KindNat64}
)

// Text is a UTF-8 string.
func Text() *Type { return textType }

// Nat is an unsigned integer of arbitrary precision.
func Nat() *Type { return natType }

// Nat64 is an unsigned 64-bit integer.
func Nat64() *Type { return nat64Type }

// Opt is zero or one occurrence of elem.
func Opt(elem *Type) *Type {
	mustType(elem, "opt")
	return &Type{kind: KindOpt, elem: elem}
}

// Vec is an ordered sequence of elem.
func Vec(elem *Type) *Type {
	mustType(elem, "vec")
	return &Type{kind: KindVec, elem: elem}
}

// Record is a fixed set of required named fields.
// Panics on duplicate or empty labels.
func Record(fields ...Field) *Type {
	return &Type{kind: KindRecord, fields: sortFields("record", fields)}
}

// Variant is exactly one of a set of tagged alternatives.
// Panics on duplicate or empty labels, or when no tag is given.
func Variant(fields ...Field) *Type {
	if len(fields) == 0 {
		panic("idl: variant needs at least one tag")
	}
	return &Type{kind: KindVariant, fields: sortFields("variant", fields)}
}

func mustType(t *Type, ctx string) {
	if t == nil || t.kind == KindInvalid {
		panic(fmt.Sprintf("idl: %s of invalid type", ctx))
	}
}

func sortFields(ctx string, fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	for i, f := range out {
		if f.Label == "" {
			panic(fmt.Sprintf("idl: %s field with empty label", ctx))
		}
		mustType(f.Type, ctx+" field "+f.Label)
		if i > 0 && out[i-1].Label == f.Label {
			panic(fmt.Sprintf("idl: duplicate %s field %q", ctx, f.Label))
		}
	}
	return out
}

// Kind returns the node kind.
func (t *Type) Kind() Kind {
	if t == nil {
		return KindInvalid
	}
	return t.kind
}

// Elem returns the element type of an opt or vec, or nil.
func (t *Type) Elem() *Type { return t.elem }

// Fields returns the fields of a record or variant, sorted by label.
func (t *Type) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Field looks up a record field or variant tag by label.
func (t *Type) Field(label string) (*Type, bool) {
	i := sort.Search(len(t.fields), func(i int) bool { return t.fields[i].Label >= label })
	if i < len(t.fields) && t.fields[i].Label == label {
		return t.fields[i].Type, true
	}
	return nil, false
}

// String renders the type in Candid-like notation.
func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Type) write(sb *strings.Builder) {
	switch t.Kind() {
	case KindText, KindNat, KindNat64:
		sb.WriteString(t.kind.String())
	case KindOpt, KindVec:
		sb.WriteString(t.kind.String())
		sb.WriteByte(' ')
		t.elem.write(sb)
	case KindRecord, KindVariant:
		sb.WriteString(t.kind.String())
		sb.WriteString(" {")
		for i, f := range t.fields {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteByte(' ')
			sb.WriteString(f.Label)
			sb.WriteString(" : ")
			f.Type.write(sb)
		}
		if len(t.fields) > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("invalid")
	}
}

// Equal reports whether two types have the same shape.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.kind {
	case KindOpt, KindVec:
		return Equal(a.elem, b.elem)
	case KindRecord, KindVariant:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Label != b.fields[i].Label || !Equal(a.fields[i].Type, b.fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// EqualTuple reports whether two type lists are pairwise equal.
func EqualTuple(a, b []*Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// TupleString renders a type list as "(t1, t2)".
func TupleString(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
