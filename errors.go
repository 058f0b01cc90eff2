package bridge

import (
	"errors"
	"fmt"
)

// UnknownProcedureError reports a call to a name that is not
// registered. It is detected before any transport activity and must
// not be retried without correcting the name.
type UnknownProcedureError struct {
	Procedure string
}

func (e *UnknownProcedureError) Error() string {
	return fmt.Sprintf("unknown procedure %q", e.Procedure)
}

// EncodeError reports arguments that do not conform to the declared
// argument types. It is detected before any transport activity.
type EncodeError struct {
	Procedure string
	Err       error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s arguments: %v", e.Procedure, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// TransportError reports that the call could not be completed. The
// caller may retry; nothing in this module retries on its own.
type TransportError struct {
	Procedure string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Procedure, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolDecodeError reports a response that does not conform to the
// declared result types. Retrying against the same remote version
// reproduces it.
type ProtocolDecodeError struct {
	Procedure string
	Err       error
}

func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("decode %s result: %v", e.Procedure, e.Err)
}

func (e *ProtocolDecodeError) Unwrap() error { return e.Err }

// IsUnknownProcedure checks whether err is an UnknownProcedureError and
// returns it.
func IsUnknownProcedure(err error) (*UnknownProcedureError, bool) {
	var e *UnknownProcedureError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsEncode checks whether err is an EncodeError and returns it.
func IsEncode(err error) (*EncodeError, bool) {
	var e *EncodeError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsTransport checks whether err is a TransportError and returns it.
func IsTransport(err error) (*TransportError, bool) {
	var e *TransportError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsProtocolDecode checks whether err is a ProtocolDecodeError and
// returns it.
func IsProtocolDecode(err error) (*ProtocolDecodeError, bool) {
	var e *ProtocolDecodeError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Retriable reports whether repeating the same call may succeed.
// Only transport failures qualify.
func Retriable(err error) bool {
	_, ok := IsTransport(err)
	return ok
}

// ErrorClass names the failure class of a call error: "ok" for nil,
// then "transport", "decode", "encode", "unknown_procedure" or "other".
// It is meant for log fields and metric labels.
func ErrorClass(err error) string {
	if err == nil {
		return "ok"
	}
	if _, ok := IsTransport(err); ok {
		return "transport"
	}
	if _, ok := IsProtocolDecode(err); ok {
		return "decode"
	}
	if _, ok := IsEncode(err); ok {
		return "encode"
	}
	if _, ok := IsUnknownProcedure(err); ok {
		return "unknown_procedure"
	}
	return "other"
}
