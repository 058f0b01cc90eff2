package bridgetest

import (
	"context"
	"testing"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/local"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/server"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// Harness drives a backend through the full binding stack: a client
// proxy, an in-process transport that serializes every message, and
// the server dispatcher. A backend that passes through the harness
// round-trips through the wire encoding on every call.
type Harness struct {
	t     testing.TB
	srv   *server.Server
	proxy *client.Proxy
}

// NewHarness creates a test harness wrapping the given backend.
func NewHarness(t testing.TB, b bridge.Backend, opts ...client.Option) *Harness {
	t.Helper()
	srv, err := server.New(b)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	proxy, err := client.New(local.NewTransport(srv, local.WithSerialization()), opts...)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return &Harness{t: t, srv: srv, proxy: proxy}
}

// Server returns the underlying server for direct access.
func (h *Harness) Server() *server.Server {
	return h.srv
}

// Proxy returns the client proxy.
func (h *Harness) Proxy() *client.Proxy {
	return h.proxy
}

// Address returns the backend's Ethereum address.
func (h *Harness) Address() string {
	h.t.Helper()
	addr, err := h.proxy.GetCanisterEthAddress(context.Background())
	if err != nil {
		h.t.Fatalf("GetCanisterEthAddress failed: %v", err)
	}
	return addr
}

// Count returns the counter outcome.
func (h *Harness) Count() types.CountOutcome {
	h.t.Helper()
	o, err := h.proxy.GetCount(context.Background())
	if err != nil {
		h.t.Fatalf("GetCount failed: %v", err)
	}
	return o
}

// MustCount returns the counter value and fails on an Err outcome.
func (h *Harness) MustCount() uint64 {
	h.t.Helper()
	o := h.Count()
	n, ok := o.Ok()
	if !ok {
		msg, _ := o.Err()
		h.t.Fatalf("expected count, got Err(%q)", msg)
	}
	return n
}

// Increase calls call_increase_count.
func (h *Harness) Increase() types.TextOutcome {
	h.t.Helper()
	o, err := h.proxy.CallIncreaseCount(context.Background())
	if err != nil {
		h.t.Fatalf("CallIncreaseCount failed: %v", err)
	}
	return o
}

// Decrease calls call_decrease_count.
func (h *Harness) Decrease() types.TextOutcome {
	h.t.Helper()
	o, err := h.proxy.CallDecreaseCount(context.Background())
	if err != nil {
		h.t.Fatalf("CallDecreaseCount failed: %v", err)
	}
	return o
}

// LatestBlock returns the latest Ethereum block.
func (h *Harness) LatestBlock() types.Block {
	h.t.Helper()
	b, err := h.proxy.GetLatestEthereumBlock(context.Background())
	if err != nil {
		h.t.Fatalf("GetLatestEthereumBlock failed: %v", err)
	}
	return b
}

// Hashes returns the stored transaction hashes.
func (h *Harness) Hashes() []string {
	h.t.Helper()
	hashes, err := h.proxy.GetStoredTransactionHashes(context.Background())
	if err != nil {
		h.t.Fatalf("GetStoredTransactionHashes failed: %v", err)
	}
	return hashes
}

// Store appends hash to the backend's log.
func (h *Harness) Store(hash string) {
	h.t.Helper()
	if err := h.proxy.StoreTransactionHash(context.Background(), hash); err != nil {
		h.t.Fatalf("StoreTransactionHash(%q) failed: %v", hash, err)
	}
}

// MustOk asserts that o is Ok and returns its payload.
func MustOk[T any](t testing.TB, o types.Outcome[T]) T {
	t.Helper()
	v, ok := o.Ok()
	if !ok {
		msg, _ := o.Err()
		t.Fatalf("expected Ok, got Err(%q)", msg)
	}
	return v
}

// MustErr asserts that o is Err and returns its description.
func MustErr[T any](t testing.TB, o types.Outcome[T]) string {
	t.Helper()
	msg, ok := o.Err()
	if !ok {
		v, _ := o.Ok()
		t.Fatalf("expected Err, got Ok(%v)", v)
	}
	return msg
}
