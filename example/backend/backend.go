// Package backend implements a reference bridge actor in memory. It
// holds a secp256k1 signing key, exposes the derived Ethereum address,
// keeps a counter whose updates are submitted as pseudo transactions,
// records transaction hashes in an append-only log and reports the
// latest block from a pluggable BlockSource.
package backend

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// Compile-time interface check.
var _ bridge.Backend = (*Backend)(nil)

// ErrCounterAtZero is the Err text of a decrease below zero.
const ErrCounterAtZero = "counter is already zero"

// Backend is the reference actor. It is safe for concurrent use.
type Backend struct {
	key     *ecdsa.PrivateKey
	address common.Address
	blocks  BlockSource
	log     zerolog.Logger

	mu     sync.Mutex
	count  uint64
	nonce  uint64
	hashes []string
}

// Option configures a Backend.
type Option func(*Backend)

// WithKey uses key as the signing key instead of a fresh one.
func WithKey(key *ecdsa.PrivateKey) Option {
	return func(b *Backend) { b.key = key }
}

// WithBlockSource reports blocks from src.
func WithBlockSource(src BlockSource) Option {
	return func(b *Backend) { b.blocks = src }
}

// WithLogger logs state changes to l.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Backend) { b.log = l }
}

// New creates a backend. Without WithKey a random key is generated;
// without WithBlockSource blocks come from a fresh SimulatedChain.
func New(opts ...Option) (*Backend, error) {
	b := &Backend{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	if b.key == nil {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("backend: generate key: %w", err)
		}
		b.key = key
	}
	if b.blocks == nil {
		b.blocks = NewSimulatedChain(GenesisBlock())
	}
	b.address = crypto.PubkeyToAddress(b.key.PublicKey)
	b.log = b.log.With().Str("address", b.address.Hex()).Logger()
	return b, nil
}

// NewFromHex creates a backend whose signing key is the hex-encoded
// secp256k1 private key hexKey.
func NewFromHex(hexKey string, opts ...Option) (*Backend, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("backend: parse key: %w", err)
	}
	return New(append(opts, WithKey(key))...)
}

// Address returns the Ethereum address of the signing key.
func (b *Backend) Address() common.Address { return b.address }

func (b *Backend) GetCanisterEthAddress(_ context.Context) (string, error) {
	return b.address.Hex(), nil
}

func (b *Backend) GetCount(_ context.Context) (types.CountOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return types.Ok(b.count), nil
}

func (b *Backend) CallIncreaseCount(ctx context.Context) (types.TextOutcome, error) {
	return b.submit(ctx, "increaseCount", func(n uint64) (uint64, error) {
		if n == ^uint64(0) {
			return 0, errors.New("counter overflow")
		}
		return n + 1, nil
	})
}

func (b *Backend) CallDecreaseCount(ctx context.Context) (types.TextOutcome, error) {
	return b.submit(ctx, "decreaseCount", func(n uint64) (uint64, error) {
		if n == 0 {
			return 0, errors.New(ErrCounterAtZero)
		}
		return n - 1, nil
	})
}

// submit applies step to the counter as one signed pseudo transaction.
// A rejected step is an Err outcome and leaves all state unchanged.
func (b *Backend) submit(ctx context.Context, method string, step func(uint64) (uint64, error)) (types.TextOutcome, error) {
	if err := ctx.Err(); err != nil {
		return types.TextOutcome{}, err
	}
	b.mu.Lock()
	next, err := step(b.count)
	if err != nil {
		b.mu.Unlock()
		b.log.Debug().Str("method", method).Err(err).Msg("transaction rejected")
		return types.Err[string](err.Error()), nil
	}
	hash := b.txHash(method, b.nonce)
	b.nonce++
	b.count = next
	b.hashes = append(b.hashes, hash)
	b.mu.Unlock()

	if sink, ok := b.blocks.(TxSink); ok {
		sink.Submit(hash)
	}
	b.log.Info().Str("method", method).Uint64("count", next).Str("tx", hash).Msg("transaction submitted")
	return types.Ok(hash), nil
}

// txHash derives a deterministic transaction hash from the sender,
// its nonce and the called method.
func (b *Backend) txHash(method string, nonce uint64) string {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(b.address.Bytes(), n[:], []byte(method)).Hex()
}

func (b *Backend) GetLatestEthereumBlock(ctx context.Context) (types.Block, error) {
	return b.blocks.LatestBlock(ctx)
}

func (b *Backend) GetStoredTransactionHashes(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.hashes...), nil
}

func (b *Backend) StoreTransactionHash(_ context.Context, hash string) error {
	b.mu.Lock()
	b.hashes = append(b.hashes, hash)
	b.mu.Unlock()
	b.log.Debug().Str("tx", hash).Msg("transaction hash stored")
	return nil
}
