// Package schema holds the interface description of a remote actor: the
// set of procedures it exposes and the argument and result types of
// each.
//
// A Schema is immutable after construction and safe to share by
// reference between goroutines.
package schema

import (
	"fmt"
	"sort"
	"strings"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// Signature is the declared shape of one procedure. Args and Results
// are tuples; an empty Results means the procedure returns nothing.
type Signature struct {
	Name    string
	Args    []*idl.Type
	Results []*idl.Type
}

// Equal compares two signatures structurally.
func (s Signature) Equal(o Signature) bool {
	return s.Name == o.Name && idl.EqualTuple(s.Args, o.Args) && idl.EqualTuple(s.Results, o.Results)
}

func (s Signature) String() string {
	return fmt.Sprintf("%s : %s -> %s", s.Name, idl.TupleString(s.Args), idl.TupleString(s.Results))
}

// Schema is a registry of procedure signatures keyed by name.
type Schema struct {
	service string
	sigs    map[string]Signature
	names   []string
}

// New builds a schema named service from sigs. Names must be non-empty
// and unique and every type must be non-nil.
func New(service string, sigs ...Signature) (*Schema, error) {
	s := &Schema{service: service, sigs: make(map[string]Signature, len(sigs))}
	for _, sig := range sigs {
		if sig.Name == "" {
			return nil, fmt.Errorf("schema %s: empty procedure name", service)
		}
		if _, dup := s.sigs[sig.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate procedure %q", service, sig.Name)
		}
		for i, t := range sig.Args {
			if t == nil {
				return nil, fmt.Errorf("schema %s: %s argument %d has no type", service, sig.Name, i)
			}
		}
		for i, t := range sig.Results {
			if t == nil {
				return nil, fmt.Errorf("schema %s: %s result %d has no type", service, sig.Name, i)
			}
		}
		sig.Args = append([]*idl.Type(nil), sig.Args...)
		sig.Results = append([]*idl.Type(nil), sig.Results...)
		s.sigs[sig.Name] = sig
		s.names = append(s.names, sig.Name)
	}
	sort.Strings(s.names)
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(service string, sigs ...Signature) *Schema {
	s, err := New(service, sigs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Service returns the service name.
func (s *Schema) Service() string { return s.service }

// Describe returns the signature registered under name, or an
// *bridge.UnknownProcedureError.
func (s *Schema) Describe(name string) (Signature, error) {
	sig, ok := s.sigs[name]
	if !ok {
		return Signature{}, &bridge.UnknownProcedureError{Procedure: name}
	}
	return sig, nil
}

// Names returns the registered procedure names in sorted order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of registered procedures.
func (s *Schema) Len() int { return len(s.names) }

// Bind checks that a binding expecting the given shape for name agrees
// with the registration. Bindings call it at construction so that a
// drifted binding fails before any call is made.
func (s *Schema) Bind(name string, args, results []*idl.Type) (Signature, error) {
	sig, ok := s.sigs[name]
	if !ok {
		return Signature{}, &BindingError{Service: s.service, Procedure: name, Reason: "not registered"}
	}
	if !idl.EqualTuple(sig.Args, args) {
		return Signature{}, &BindingError{
			Service: s.service, Procedure: name,
			Reason: fmt.Sprintf("arguments %s, registered %s", idl.TupleString(args), idl.TupleString(sig.Args)),
		}
	}
	if !idl.EqualTuple(sig.Results, results) {
		return Signature{}, &BindingError{
			Service: s.service, Procedure: name,
			Reason: fmt.Sprintf("results %s, registered %s", idl.TupleString(results), idl.TupleString(sig.Results)),
		}
	}
	return sig, nil
}

// DID renders the schema as a Candid-style service description.
func (s *Schema) DID() string {
	var b strings.Builder
	b.WriteString("service : {\n")
	for _, name := range s.names {
		sig := s.sigs[name]
		fmt.Fprintf(&b, "  %s : %s -> %s;\n", name, idl.TupleString(sig.Args), idl.TupleString(sig.Results))
	}
	b.WriteString("}\n")
	return b.String()
}

// BindingError reports a binding whose declared shape disagrees with
// the schema registration.
type BindingError struct {
	Service   string
	Procedure string
	Reason    string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("schema %s: binding for %s: %s", e.Service, e.Procedure, e.Reason)
}
