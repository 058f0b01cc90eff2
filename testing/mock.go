// Package bridgetest provides test utilities for bridge backend and
// client development, including a configurable mock backend, a fake
// transport, a test harness and a backend compliance suite.
package bridgetest

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// Compile-time check that MockBackend satisfies bridge.Backend.
var _ bridge.Backend = (*MockBackend)(nil)

// MockAddress is the address a MockBackend reports by default.
const MockAddress = "0x95222290DD7278Aa3Ddd389Cc1E1d165CC4BAfe5"

// MockBackend is a configurable mock backend. All methods are
// configurable via function fields. Unconfigured methods return fixed,
// valid defaults; StoreTransactionHash and GetStoredTransactionHashes
// share an in-memory log.
type MockBackend struct {
	mu     sync.Mutex
	hashes []string

	// Configurable handlers. If nil, defaults are used.
	GetCanisterEthAddressFn      func(context.Context) (string, error)
	GetCountFn                   func(context.Context) (types.CountOutcome, error)
	CallIncreaseCountFn          func(context.Context) (types.TextOutcome, error)
	CallDecreaseCountFn          func(context.Context) (types.TextOutcome, error)
	GetLatestEthereumBlockFn     func(context.Context) (types.Block, error)
	GetStoredTransactionHashesFn func(context.Context) ([]string, error)
	StoreTransactionHashFn       func(context.Context, string) error

	// Call counters (atomic for concurrent access).
	GetCanisterEthAddressCalls      atomic.Int64
	GetCountCalls                   atomic.Int64
	CallIncreaseCountCalls          atomic.Int64
	CallDecreaseCountCalls          atomic.Int64
	GetLatestEthereumBlockCalls     atomic.Int64
	GetStoredTransactionHashesCalls atomic.Int64
	StoreTransactionHashCalls       atomic.Int64
}

func (m *MockBackend) GetCanisterEthAddress(ctx context.Context) (string, error) {
	m.GetCanisterEthAddressCalls.Add(1)
	if m.GetCanisterEthAddressFn != nil {
		return m.GetCanisterEthAddressFn(ctx)
	}
	return MockAddress, nil
}

func (m *MockBackend) GetCount(ctx context.Context) (types.CountOutcome, error) {
	m.GetCountCalls.Add(1)
	if m.GetCountFn != nil {
		return m.GetCountFn(ctx)
	}
	return types.Ok[uint64](0), nil
}

func (m *MockBackend) CallIncreaseCount(ctx context.Context) (types.TextOutcome, error) {
	m.CallIncreaseCountCalls.Add(1)
	if m.CallIncreaseCountFn != nil {
		return m.CallIncreaseCountFn(ctx)
	}
	return types.Ok(ZeroHash), nil
}

func (m *MockBackend) CallDecreaseCount(ctx context.Context) (types.TextOutcome, error) {
	m.CallDecreaseCountCalls.Add(1)
	if m.CallDecreaseCountFn != nil {
		return m.CallDecreaseCountFn(ctx)
	}
	return types.Ok(ZeroHash), nil
}

func (m *MockBackend) GetLatestEthereumBlock(ctx context.Context) (types.Block, error) {
	m.GetLatestEthereumBlockCalls.Add(1)
	if m.GetLatestEthereumBlockFn != nil {
		return m.GetLatestEthereumBlockFn(ctx)
	}
	return SampleBlock(), nil
}

func (m *MockBackend) GetStoredTransactionHashes(ctx context.Context) ([]string, error) {
	m.GetStoredTransactionHashesCalls.Add(1)
	if m.GetStoredTransactionHashesFn != nil {
		return m.GetStoredTransactionHashesFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.hashes...), nil
}

func (m *MockBackend) StoreTransactionHash(ctx context.Context, hash string) error {
	m.StoreTransactionHashCalls.Add(1)
	if m.StoreTransactionHashFn != nil {
		return m.StoreTransactionHashFn(ctx, hash)
	}
	m.mu.Lock()
	m.hashes = append(m.hashes, hash)
	m.mu.Unlock()
	return nil
}

// --- Fixtures ---

// ZeroHash is a well-formed 32-byte transaction hash.
const ZeroHash = "0x0000000000000000000000000000000000000000000000000000000000000000"

// SampleTotalDifficulty is mainnet's terminal total difficulty, which
// does not fit in 64 bits.
func SampleTotalDifficulty() *big.Int {
	n, _ := new(big.Int).SetString("58750003716598352816469", 10)
	return n
}

// SampleBlock returns a post-merge mainnet block with the optional
// transactionsRoot absent.
func SampleBlock() types.Block {
	return types.Block{
		BaseFeePerGas:   big.NewInt(17402701426),
		Difficulty:      big.NewInt(0),
		ExtraData:       "0x6265617665726275696c642e6f7267",
		GasLimit:        big.NewInt(30000000),
		GasUsed:         big.NewInt(12984306),
		Hash:            "0x6e8e3a1d0a5cf0c5e5f3b1dd3c6f6a2e7c9a9b5b8d46f5c6e30b2c7a1f0e4d3c",
		LogsBloom:       "0x" + zeros(512),
		Miner:           MockAddress,
		MixHash:         "0x1c9fe4b7f5d3e0a3c2b1a09f8e7d6c5b4a39281706f5e4d3c2b1a0918f7e6d5c",
		Nonce:           big.NewInt(0),
		Number:          big.NewInt(19000000),
		ParentHash:      "0x3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b",
		ReceiptsRoot:    "0x9b8a7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f1a0b9c8d7e6f5a4b3c2d1e0f9a8b",
		Sha3Uncles:      "0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347",
		Size:            big.NewInt(59532),
		StateRoot:       "0x4f3e2d1c0b9a8f7e6d5c4b3a29180f7e6d5c4b3a29180f7e6d5c4b3a29180f7e",
		Timestamp:       big.NewInt(1705173443),
		TotalDifficulty: SampleTotalDifficulty(),
		Transactions: []string{
			"0x2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b3a2f1e0d9c8b7a6f5e4d3c2b1a",
			"0x5c4b3a2f1e0d9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b9a8f7e6d5c4b",
		},
		Uncles: []string{},
	}
}

func zeros(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}
