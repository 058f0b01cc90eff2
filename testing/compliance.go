package bridgetest

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
)

// RunComplianceSuite runs a standard compliance test suite against a
// backend implementation, through the full binding stack.
//
// The factory function should return a fresh backend for each test.
// Backends are expected to start with a counter that can be
// incremented and an empty transaction hash log.
func RunComplianceSuite(t *testing.T, factory func() bridge.Backend) {
	t.Helper()

	t.Run("address_is_ethereum_address", func(t *testing.T) {
		h := NewHarness(t, factory())
		addr := h.Address()
		if !common.IsHexAddress(addr) {
			t.Fatalf("address %q is not a hex Ethereum address", addr)
		}
		if h.Address() != addr {
			t.Error("address changed between calls")
		}
	})

	t.Run("increase_returns_tx_hash", func(t *testing.T) {
		h := NewHarness(t, factory())
		before := h.MustCount()
		hash := MustOk(t, h.Increase())
		if b, err := hexutil.Decode(hash); err != nil || len(b) != common.HashLength {
			t.Errorf("increase returned %q, want a 32-byte hex hash", hash)
		}
		if after := h.MustCount(); after != before+1 {
			t.Errorf("count after increase: want %d, got %d", before+1, after)
		}
	})

	t.Run("decrease_undoes_increase", func(t *testing.T) {
		h := NewHarness(t, factory())
		before := h.MustCount()
		MustOk(t, h.Increase())
		MustOk(t, h.Decrease())
		if after := h.MustCount(); after != before {
			t.Errorf("count after increase+decrease: want %d, got %d", before, after)
		}
	})

	t.Run("latest_block_is_well_formed", func(t *testing.T) {
		h := NewHarness(t, factory())
		b := h.LatestBlock()
		if b.Number == nil || b.Number.Sign() < 0 {
			t.Errorf("block number %v", b.Number)
		}
		if _, err := hexutil.Decode(b.Hash); err != nil {
			t.Errorf("block hash %q: %v", b.Hash, err)
		}
		if b.Transactions == nil || b.Uncles == nil {
			t.Error("block sequences must decode as empty, not nil")
		}
	})

	t.Run("hash_log_append_only", func(t *testing.T) {
		h := NewHarness(t, factory())
		prefix := h.Hashes()
		h.Store("0xabc")
		h.Store("0xdef")
		h.Store("0xabc")

		got := h.Hashes()
		if len(got) != len(prefix)+3 {
			t.Fatalf("want %d hashes, got %d", len(prefix)+3, len(got))
		}
		for i, p := range prefix {
			if got[i] != p {
				t.Errorf("hash %d rewritten: %q -> %q", i, p, got[i])
			}
		}
		tail := got[len(prefix):]
		if tail[0] != "0xabc" || tail[1] != "0xdef" || tail[2] != "0xabc" {
			t.Errorf("unexpected tail %v", tail)
		}
	})

	t.Run("concurrent_calls", func(t *testing.T) {
		h := NewHarness(t, factory())
		p := h.Proxy()
		g, ctx := errgroup.WithContext(context.Background())
		for i := 0; i < 10; i++ {
			g.Go(func() error {
				_, err := p.GetCount(ctx)
				return err
			})
			g.Go(func() error {
				_, err := p.GetLatestEthereumBlock(ctx)
				return err
			})
			g.Go(func() error {
				return p.StoreTransactionHash(ctx, "0x01")
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent call failed: %v", err)
		}
		n := 0
		for _, hash := range h.Hashes() {
			if hash == "0x01" {
				n++
			}
		}
		if n != 10 {
			t.Errorf("want 10 stored hashes, got %d", n)
		}
	})
}
