// Package types defines the native Go forms of the values exchanged
// with the bridge backend, and their conversions to and from idl
// values.
//
// Conversions from idl values are strict: a value that does not have
// the expected shape fails with *idl.DecodeError rather than falling
// back to a default.
package types

import (
	"math/big"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// TextsValue converts a list of strings to a sequence of text.
// A nil slice is the empty sequence.
func TextsValue(ss []string) idl.Value {
	elems := make([]idl.Value, len(ss))
	for i, s := range ss {
		elems[i] = idl.TextValue(s)
	}
	return idl.VecValue(elems...)
}

// TextsFromValue converts a sequence of text. The result is never nil.
func TextsFromValue(path string, v idl.Value) ([]string, error) {
	if v.Kind() != idl.KindVec {
		return nil, kindError(path, idl.KindVec, v)
	}
	elems := v.Elems()
	out := make([]string, len(elems))
	for i, e := range elems {
		s, err := TextFromValue(idl.IndexPath(path, i), e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// TextFromValue converts a text value.
func TextFromValue(path string, v idl.Value) (string, error) {
	s, ok := v.AsText()
	if !ok {
		return "", kindError(path, idl.KindText, v)
	}
	return s, nil
}

// NatFromValue converts a Nat value.
func NatFromValue(path string, v idl.Value) (*big.Int, error) {
	n, ok := v.AsNat()
	if !ok {
		return nil, kindError(path, idl.KindNat, v)
	}
	return n, nil
}

// Nat64FromValue converts a Nat64 value.
func Nat64FromValue(path string, v idl.Value) (uint64, error) {
	n, ok := v.AsNat64()
	if !ok {
		return 0, kindError(path, idl.KindNat64, v)
	}
	return n, nil
}

func kindError(path string, want idl.Kind, v idl.Value) *idl.DecodeError {
	return idl.NewDecodeError(path, idl.ErrTypeMismatch, "want %s, got %s", want, v.Kind())
}
