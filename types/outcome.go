package types

import (
	"fmt"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// Tag identifies which alternative of an Outcome is populated.
type Tag uint8

const (
	tagInvalid Tag = iota
	TagOk
	TagErr
)

// Variant labels of an outcome.
const (
	LabelOk  = "Ok"
	LabelErr = "Err"
)

func (t Tag) String() string {
	switch t {
	case TagOk:
		return LabelOk
	case TagErr:
		return LabelErr
	default:
		return fmt.Sprintf("tag(%d)", uint8(t))
	}
}

// Outcome is the result of a remote operation that can fail at the
// application level: exactly one of Ok (carrying T) or Err (carrying a
// human-readable description).
//
// An Err outcome is business data, not a call failure. Use Match (or
// MatchOutcome) so that both alternatives are always handled.
type Outcome[T any] struct {
	tag Tag
	ok  T
	err string
}

// TextOutcome is variant { Ok : text; Err : text }.
type TextOutcome = Outcome[string]

// CountOutcome is variant { Ok : nat64; Err : text }.
type CountOutcome = Outcome[uint64]

// Ok builds a successful outcome.
func Ok[T any](v T) Outcome[T] { return Outcome[T]{tag: TagOk, ok: v} }

// Err builds a failed outcome.
func Err[T any](msg string) Outcome[T] { return Outcome[T]{tag: TagErr, err: msg} }

func (o Outcome[T]) Tag() Tag { return o.tag }

// Ok returns the payload and true if the Ok tag is populated.
func (o Outcome[T]) Ok() (T, bool) {
	return o.ok, o.tag == TagOk
}

// Err returns the description and true if the Err tag is populated.
func (o Outcome[T]) Err() (string, bool) {
	return o.err, o.tag == TagErr
}

// Match calls exactly one of ok or err. It panics on the zero Outcome.
func (o Outcome[T]) Match(ok func(T), err func(string)) {
	switch o.tag {
	case TagOk:
		ok(o.ok)
	case TagErr:
		err(o.err)
	default:
		panic("types: Match on zero Outcome")
	}
}

func (o Outcome[T]) String() string {
	switch o.tag {
	case TagOk:
		return fmt.Sprintf("Ok(%v)", o.ok)
	case TagErr:
		return fmt.Sprintf("Err(%q)", o.err)
	default:
		return "Outcome(<zero>)"
	}
}

// MatchOutcome is Match with a result.
func MatchOutcome[T, R any](o Outcome[T], ok func(T) R, err func(string) R) R {
	var out R
	o.Match(func(v T) { out = ok(v) }, func(msg string) { out = err(msg) })
	return out
}

// OutcomeValue converts an outcome to a variant value, using ok for the
// payload. It panics on the zero Outcome.
func OutcomeValue[T any](o Outcome[T], ok func(T) idl.Value) idl.Value {
	return MatchOutcome(o,
		func(v T) idl.Value { return idl.VariantValue(LabelOk, ok(v)) },
		func(msg string) idl.Value { return idl.VariantValue(LabelErr, idl.TextValue(msg)) },
	)
}

// OutcomeFromValue converts a variant value, using ok for the payload.
func OutcomeFromValue[T any](v idl.Value, ok func(path string, v idl.Value) (T, error)) (Outcome[T], error) {
	tag, payload, isVariant := v.Tag()
	if !isVariant {
		return Outcome[T]{}, kindError(idl.Root, idl.KindVariant, v)
	}
	path := idl.FieldPath(idl.Root, tag)
	switch tag {
	case LabelOk:
		x, err := ok(path, payload)
		if err != nil {
			return Outcome[T]{}, err
		}
		return Ok(x), nil
	case LabelErr:
		msg, err := TextFromValue(path, payload)
		if err != nil {
			return Outcome[T]{}, err
		}
		return Err[T](msg), nil
	}
	return Outcome[T]{}, idl.NewDecodeError(path, idl.ErrUnknownVariantTag, "want Ok or Err")
}

func TextOutcomeValue(o TextOutcome) idl.Value {
	return OutcomeValue(o, idl.TextValue)
}

func TextOutcomeFromValue(v idl.Value) (TextOutcome, error) {
	return OutcomeFromValue(v, TextFromValue)
}

func CountOutcomeValue(o CountOutcome) idl.Value {
	return OutcomeValue(o, idl.Nat64Value)
}

func CountOutcomeFromValue(v idl.Value) (CountOutcome, error) {
	return OutcomeFromValue(v, Nat64FromValue)
}
