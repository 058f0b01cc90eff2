package schema

import (
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// BackendService is the service name of the bridge actor.
const BackendService = "icp_evm_rust_bridge_backend"

// Procedure names of the bridge actor.
const (
	GetCanisterEthAddress      = "get_canister_eth_address"
	GetCount                   = "get_count"
	CallIncreaseCount          = "call_increase_count"
	CallDecreaseCount          = "call_decrease_count"
	GetLatestEthereumBlock     = "get_latest_ethereum_block"
	GetStoredTransactionHashes = "get_stored_transaction_hashes"
	StoreTransactionHash       = "store_transaction_hash"
)

var (
	// BlockType is the record type of types.Block.
	BlockType = idl.Record(
		idl.F(types.FieldBaseFeePerGas, idl.Nat()),
		idl.F(types.FieldDifficulty, idl.Nat()),
		idl.F(types.FieldExtraData, idl.Text()),
		idl.F(types.FieldGasLimit, idl.Nat()),
		idl.F(types.FieldGasUsed, idl.Nat()),
		idl.F(types.FieldHash, idl.Text()),
		idl.F(types.FieldLogsBloom, idl.Text()),
		idl.F(types.FieldMiner, idl.Text()),
		idl.F(types.FieldMixHash, idl.Text()),
		idl.F(types.FieldNonce, idl.Nat()),
		idl.F(types.FieldNumber, idl.Nat()),
		idl.F(types.FieldParentHash, idl.Text()),
		idl.F(types.FieldReceiptsRoot, idl.Text()),
		idl.F(types.FieldSha3Uncles, idl.Text()),
		idl.F(types.FieldSize, idl.Nat()),
		idl.F(types.FieldStateRoot, idl.Text()),
		idl.F(types.FieldTimestamp, idl.Nat()),
		idl.F(types.FieldTotalDifficulty, idl.Nat()),
		idl.F(types.FieldTransactions, idl.Vec(idl.Text())),
		idl.F(types.FieldTransactionsRoot, idl.Opt(idl.Text())),
		idl.F(types.FieldUncles, idl.Vec(idl.Text())),
	)

	// TextResultType is variant { Ok : text; Err : text }.
	TextResultType = idl.Variant(idl.F(types.LabelOk, idl.Text()), idl.F(types.LabelErr, idl.Text()))

	// CountResultType is variant { Ok : nat64; Err : text }.
	CountResultType = idl.Variant(idl.F(types.LabelOk, idl.Nat64()), idl.F(types.LabelErr, idl.Text()))
)

// BackendSignatures returns the canonical registration of the bridge
// actor. Every binding in this module is validated against it.
func BackendSignatures() []Signature {
	return []Signature{
		{Name: GetCanisterEthAddress, Results: []*idl.Type{idl.Text()}},
		{Name: GetCount, Results: []*idl.Type{CountResultType}},
		{Name: CallIncreaseCount, Results: []*idl.Type{TextResultType}},
		{Name: CallDecreaseCount, Results: []*idl.Type{TextResultType}},
		{Name: GetLatestEthereumBlock, Results: []*idl.Type{BlockType}},
		{Name: GetStoredTransactionHashes, Results: []*idl.Type{idl.Vec(idl.Text())}},
		{Name: StoreTransactionHash, Args: []*idl.Type{idl.Text()}},
	}
}

// Backend is the registration of the bridge actor.
var Backend = MustNew(BackendService, BackendSignatures()...)
