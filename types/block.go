package types

import (
	"math/big"
	"time"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
)

// Block is one Ethereum block as reported by the backend.
//
// Hashes, addresses and blobs are 0x-prefixed hex text. Quantities are
// unbounded naturals because some of them (totalDifficulty in
// particular) exceed 64 bits on mainnet.
type Block struct {
	BaseFeePerGas   *big.Int
	Difficulty      *big.Int
	ExtraData       string
	GasLimit        *big.Int
	GasUsed         *big.Int
	Hash            string
	LogsBloom       string
	Miner           string
	MixHash         string
	Nonce           *big.Int
	Number          *big.Int
	ParentHash      string
	ReceiptsRoot    string
	Sha3Uncles      string
	Size            *big.Int
	StateRoot       string
	Timestamp       *big.Int
	TotalDifficulty *big.Int
	Transactions    []string
	// Absent for some historical and empty blocks.
	TransactionsRoot *string
	Uncles           []string
}

// Block record labels.
const (
	FieldBaseFeePerGas    = "baseFeePerGas"
	FieldDifficulty       = "difficulty"
	FieldExtraData        = "extraData"
	FieldGasLimit         = "gasLimit"
	FieldGasUsed          = "gasUsed"
	FieldHash             = "hash"
	FieldLogsBloom        = "logsBloom"
	FieldMiner            = "miner"
	FieldMixHash          = "mixHash"
	FieldNonce            = "nonce"
	FieldNumber           = "number"
	FieldParentHash       = "parentHash"
	FieldReceiptsRoot     = "receiptsRoot"
	FieldSha3Uncles       = "sha3Uncles"
	FieldSize             = "size"
	FieldStateRoot        = "stateRoot"
	FieldTimestamp        = "timestamp"
	FieldTotalDifficulty  = "totalDifficulty"
	FieldTransactions     = "transactions"
	FieldTransactionsRoot = "transactionsRoot"
	FieldUncles           = "uncles"
)

// Value converts the block to a record value. Nil quantities encode as
// zero and nil slices as empty sequences.
func (b Block) Value() idl.Value {
	root := idl.None()
	if b.TransactionsRoot != nil {
		root = idl.Some(idl.TextValue(*b.TransactionsRoot))
	}
	return idl.RecordValue(
		idl.FV(FieldBaseFeePerGas, idl.NatValue(b.BaseFeePerGas)),
		idl.FV(FieldDifficulty, idl.NatValue(b.Difficulty)),
		idl.FV(FieldExtraData, idl.TextValue(b.ExtraData)),
		idl.FV(FieldGasLimit, idl.NatValue(b.GasLimit)),
		idl.FV(FieldGasUsed, idl.NatValue(b.GasUsed)),
		idl.FV(FieldHash, idl.TextValue(b.Hash)),
		idl.FV(FieldLogsBloom, idl.TextValue(b.LogsBloom)),
		idl.FV(FieldMiner, idl.TextValue(b.Miner)),
		idl.FV(FieldMixHash, idl.TextValue(b.MixHash)),
		idl.FV(FieldNonce, idl.NatValue(b.Nonce)),
		idl.FV(FieldNumber, idl.NatValue(b.Number)),
		idl.FV(FieldParentHash, idl.TextValue(b.ParentHash)),
		idl.FV(FieldReceiptsRoot, idl.TextValue(b.ReceiptsRoot)),
		idl.FV(FieldSha3Uncles, idl.TextValue(b.Sha3Uncles)),
		idl.FV(FieldSize, idl.NatValue(b.Size)),
		idl.FV(FieldStateRoot, idl.TextValue(b.StateRoot)),
		idl.FV(FieldTimestamp, idl.NatValue(b.Timestamp)),
		idl.FV(FieldTotalDifficulty, idl.NatValue(b.TotalDifficulty)),
		idl.FV(FieldTransactions, TextsValue(b.Transactions)),
		idl.FV(FieldTransactionsRoot, root),
		idl.FV(FieldUncles, TextsValue(b.Uncles)),
	)
}

// BlockFromValue converts a block record.
func BlockFromValue(v idl.Value) (Block, error) {
	if v.Kind() != idl.KindRecord {
		return Block{}, kindError(idl.Root, idl.KindRecord, v)
	}
	r := &recordReader{v: v}
	b := Block{
		BaseFeePerGas:    r.nat(FieldBaseFeePerGas),
		Difficulty:       r.nat(FieldDifficulty),
		ExtraData:        r.text(FieldExtraData),
		GasLimit:         r.nat(FieldGasLimit),
		GasUsed:          r.nat(FieldGasUsed),
		Hash:             r.text(FieldHash),
		LogsBloom:        r.text(FieldLogsBloom),
		Miner:            r.text(FieldMiner),
		MixHash:          r.text(FieldMixHash),
		Nonce:            r.nat(FieldNonce),
		Number:           r.nat(FieldNumber),
		ParentHash:       r.text(FieldParentHash),
		ReceiptsRoot:     r.text(FieldReceiptsRoot),
		Sha3Uncles:       r.text(FieldSha3Uncles),
		Size:             r.nat(FieldSize),
		StateRoot:        r.text(FieldStateRoot),
		Timestamp:        r.nat(FieldTimestamp),
		TotalDifficulty:  r.nat(FieldTotalDifficulty),
		Transactions:     r.texts(FieldTransactions),
		TransactionsRoot: r.optText(FieldTransactionsRoot),
		Uncles:           r.texts(FieldUncles),
	}
	if r.err != nil {
		return Block{}, r.err
	}
	return b, nil
}

// Height narrows the block number to 64 bits.
func (b Block) Height() (uint64, error) {
	return idl.Uint64(b.Number)
}

// Time converts the Unix timestamp of the block.
func (b Block) Time() (time.Time, error) {
	secs, err := idl.Uint64(b.Timestamp)
	if err != nil {
		return time.Time{}, err
	}
	if secs > 1<<62 {
		return time.Time{}, idl.ErrOverflow
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

// recordReader pulls typed fields out of a record and keeps the first
// failure.
type recordReader struct {
	v   idl.Value
	err error
}

func (r *recordReader) field(label string) (idl.Value, string, bool) {
	path := idl.FieldPath(idl.Root, label)
	if r.err != nil {
		return idl.Value{}, path, false
	}
	fv, ok := r.v.Field(label)
	if !ok {
		r.err = idl.NewDecodeError(path, idl.ErrMissingField, "")
		return idl.Value{}, path, false
	}
	return fv, path, true
}

func (r *recordReader) text(label string) string {
	fv, path, ok := r.field(label)
	if !ok {
		return ""
	}
	s, err := TextFromValue(path, fv)
	if err != nil {
		r.err = err
	}
	return s
}

func (r *recordReader) nat(label string) *big.Int {
	fv, path, ok := r.field(label)
	if !ok {
		return nil
	}
	n, err := NatFromValue(path, fv)
	if err != nil {
		r.err = err
	}
	return n
}

func (r *recordReader) texts(label string) []string {
	fv, path, ok := r.field(label)
	if !ok {
		return nil
	}
	ss, err := TextsFromValue(path, fv)
	if err != nil {
		r.err = err
	}
	return ss
}

func (r *recordReader) optText(label string) *string {
	fv, path, ok := r.field(label)
	if !ok {
		return nil
	}
	if fv.Kind() != idl.KindOpt {
		r.err = kindError(path, idl.KindOpt, fv)
		return nil
	}
	inner, present := fv.Option()
	if !present {
		return nil
	}
	s, err := TextFromValue(path+"?", inner)
	if err != nil {
		r.err = err
		return nil
	}
	return &s
}
