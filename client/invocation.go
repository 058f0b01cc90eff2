package client

import (
	"fmt"
	"sync/atomic"
	"time"
)

// State is the phase of one remote call.
type State uint32

const (
	// StateIdle: the call has not reached the transport. Unknown
	// procedures and encode failures finish here.
	StateIdle State = iota
	// StatePending: the request is with the transport.
	StatePending
	// StateDecoded: a response arrived and matched the declared
	// result types.
	StateDecoded
	// StateTransportFailed: the transport reported an error.
	StateTransportFailed
	// StateDecodeFailed: a response arrived but did not match the
	// declared result types.
	StateDecodeFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePending:
		return "Pending"
	case StateDecoded:
		return "Decoded"
	case StateTransportFailed:
		return "TransportFailed"
	case StateDecodeFailed:
		return "DecodeFailed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateDecoded || s == StateTransportFailed || s == StateDecodeFailed
}

// Invocation tracks one call through its states. Each call owns its
// own Invocation, so nothing is shared between concurrent calls.
type Invocation struct {
	procedure string
	state     atomic.Uint32
	started   time.Time
	elapsed   time.Duration
	err       error
}

func newInvocation(procedure string) *Invocation {
	return &Invocation{procedure: procedure}
}

// Procedure returns the name of the called procedure.
func (i *Invocation) Procedure() string { return i.procedure }

// State returns the current state.
func (i *Invocation) State() State { return State(i.state.Load()) }

// Duration returns the time spent with the transport and decoding.
// It is zero for calls that never left Idle.
func (i *Invocation) Duration() time.Duration { return i.elapsed }

// Err returns the failure that ended the call, or nil.
func (i *Invocation) Err() error { return i.err }

// dispatch transitions Idle → Pending.
// Panics if not in Idle state.
func (i *Invocation) dispatch() {
	if !i.state.CompareAndSwap(uint32(StateIdle), uint32(StatePending)) {
		panic(fmt.Sprintf("client: %s dispatched in state %s (expected Idle)", i.procedure, i.State()))
	}
	i.started = time.Now()
}

// reject records a failure detected before dispatch. The state stays
// Idle.
func (i *Invocation) reject(err error) {
	if s := i.State(); s != StateIdle {
		panic(fmt.Sprintf("client: %s rejected in state %s (expected Idle)", i.procedure, s))
	}
	i.err = err
}

// finish transitions Pending → to.
// Panics if not in Pending state or if to is not terminal.
func (i *Invocation) finish(to State, err error) {
	if !to.Terminal() {
		panic(fmt.Sprintf("client: %s finished into non-terminal state %s", i.procedure, to))
	}
	if !i.state.CompareAndSwap(uint32(StatePending), uint32(to)) {
		panic(fmt.Sprintf("client: %s finished in state %s (expected Pending)", i.procedure, i.State()))
	}
	i.elapsed = time.Since(i.started)
	i.err = err
}

// Observer is told about every call once it is over, whether it
// reached the transport or not. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveInvocation(inv *Invocation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(inv *Invocation)

func (f ObserverFunc) ObserveInvocation(inv *Invocation) { f(inv) }

// Observers fans out to several observers in order.
type Observers []Observer

func (os Observers) ObserveInvocation(inv *Invocation) {
	for _, o := range os {
		if o != nil {
			o.ObserveInvocation(inv)
		}
	}
}
