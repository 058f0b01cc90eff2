package idl

import (
	"errors"
	"fmt"
)

// Structural failure causes. Match them with errors.Is.
var (
	ErrMissingField      = errors.New("missing field")
	ErrUnknownVariantTag = errors.New("unknown variant tag")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrMalformed         = errors.New("malformed value")
	ErrOverflow          = errors.New("integer overflow")
	ErrNegative          = errors.New("negative natural")
)

// EncodeError reports a value that does not conform to its declared
// type. It is raised before anything is sent.
type EncodeError struct {
	Path   string
	Err    error
	Detail string
}

func (e *EncodeError) Error() string {
	return formatPathError("encode", e.Path, e.Err, e.Detail)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a payload that does not conform to the type it
// is decoded against.
type DecodeError struct {
	Path   string
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	return formatPathError("decode", e.Path, e.Err, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NewEncodeError builds an EncodeError at path.
func NewEncodeError(path string, cause error, format string, args ...any) *EncodeError {
	return &EncodeError{Path: path, Err: cause, Detail: fmt.Sprintf(format, args...)}
}

// NewDecodeError builds a DecodeError at path.
func NewDecodeError(path string, cause error, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Err: cause, Detail: fmt.Sprintf(format, args...)}
}

func formatPathError(op, path string, cause error, detail string) string {
	if path == "" {
		path = Root
	}
	msg := fmt.Sprintf("%s %s: %v", op, path, cause)
	if detail != "" {
		msg += " (" + detail + ")"
	}
	return msg
}

// Root is the path of a top-level value.
const Root = "$"

// FieldPath appends a record field or variant tag to path.
func FieldPath(path, label string) string {
	if path == "" {
		path = Root
	}
	return path + "." + label
}

// IndexPath appends a sequence index to path.
func IndexPath(path string, i int) string {
	if path == "" {
		path = Root
	}
	return fmt.Sprintf("%s[%d]", path, i)
}
