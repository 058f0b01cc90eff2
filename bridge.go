// Package bridge defines the typed remote-call boundary between a
// client and the ICP backend actor that bridges to Ethereum.
//
// The [Backend] interface is the native-typed view of the actor's seven
// procedures. The client proxy, the server dispatcher, the in-process
// adapter and the reference actor all implement or consume it. A
// [Transport] carries one encoded call at a time and knows nothing
// about procedure shapes.
package bridge

import (
	"context"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Backend is the native-typed surface of the bridge actor.
//
// Implementations MUST be safe for concurrent use. Calls are causally
// independent: no ordering is imposed between them and nothing is
// coalesced or deduplicated.
//
// An error return means the call itself failed (see the error types in
// this package). A remote operation that ran and failed is reported as
// the Err alternative of the returned Outcome with a nil error.
type Backend interface {
	// GetCanisterEthAddress returns the 0x-prefixed Ethereum address
	// controlled by the actor's signing key.
	GetCanisterEthAddress(ctx context.Context) (string, error)

	// GetCount returns the current value of the counter contract.
	GetCount(ctx context.Context) (types.CountOutcome, error)

	// CallIncreaseCount submits a transaction that increments the
	// counter and returns its transaction hash.
	CallIncreaseCount(ctx context.Context) (types.TextOutcome, error)

	// CallDecreaseCount submits a transaction that decrements the
	// counter and returns its transaction hash.
	CallDecreaseCount(ctx context.Context) (types.TextOutcome, error)

	// GetLatestEthereumBlock returns the most recent block seen by the
	// actor. Values are per call and never cached here.
	GetLatestEthereumBlock(ctx context.Context) (types.Block, error)

	// GetStoredTransactionHashes returns the transaction hash log in
	// insertion order.
	GetStoredTransactionHashes(ctx context.Context) ([]string, error)

	// StoreTransactionHash appends hash to the log.
	StoreTransactionHash(ctx context.Context, hash string) error
}

// Transport delivers an encoded argument tuple to the named procedure
// and returns the encoded result tuple.
//
// Transports MUST support concurrent outstanding calls. A returned
// error is a transport failure; transports do not interpret payloads.
type Transport interface {
	Call(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error)

	// Close releases the underlying connection.
	Close() error
}
