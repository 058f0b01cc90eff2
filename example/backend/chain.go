package backend

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// BlockSource supplies the latest Ethereum block.
type BlockSource interface {
	LatestBlock(ctx context.Context) (types.Block, error)
}

// BlockSourceFunc adapts a function to BlockSource.
type BlockSourceFunc func(ctx context.Context) (types.Block, error)

func (f BlockSourceFunc) LatestBlock(ctx context.Context) (types.Block, error) { return f(ctx) }

// TxSink is implemented by block sources that include submitted
// transactions in later blocks.
type TxSink interface {
	Submit(txHash string)
}

// Empty-list hashes of an Ethereum block.
var (
	EmptyUncleHash = common.HexToHash("0x1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347")
	EmptyRootHash  = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
)

// GenesisBlock returns the head a SimulatedChain starts from: a
// post-merge block with mainnet's terminal total difficulty.
func GenesisBlock() types.Block {
	ttd, _ := new(big.Int).SetString("58750003716598352816469", 10)
	root := EmptyRootHash.Hex()
	return types.Block{
		BaseFeePerGas:    big.NewInt(1_000_000_000),
		Difficulty:       big.NewInt(0),
		ExtraData:        "0x",
		GasLimit:         big.NewInt(30_000_000),
		GasUsed:          big.NewInt(0),
		Hash:             crypto.Keccak256Hash([]byte("icp-evm-bridge genesis")).Hex(),
		LogsBloom:        "0x" + common.Bytes2Hex(make([]byte, 256)),
		Miner:            common.Address{}.Hex(),
		MixHash:          common.Hash{}.Hex(),
		Nonce:            big.NewInt(0),
		Number:           big.NewInt(0),
		ParentHash:       common.Hash{}.Hex(),
		ReceiptsRoot:     EmptyRootHash.Hex(),
		Sha3Uncles:       EmptyUncleHash.Hex(),
		Size:             big.NewInt(540),
		StateRoot:        EmptyRootHash.Hex(),
		Timestamp:        big.NewInt(1_700_000_000),
		TotalDifficulty:  ttd,
		Transactions:     []string{},
		TransactionsRoot: &root,
		Uncles:           []string{},
	}
}

// SimulatedChain is an in-memory chain that seals a new block on every
// Mine. Submitted transactions are included in the next block.
type SimulatedChain struct {
	mu      sync.Mutex
	head    types.Block
	pending []string
}

// Compile-time interface checks.
var (
	_ BlockSource = (*SimulatedChain)(nil)
	_ TxSink      = (*SimulatedChain)(nil)
)

// NewSimulatedChain starts a chain at genesis.
func NewSimulatedChain(genesis types.Block) *SimulatedChain {
	return &SimulatedChain{head: copyBlock(genesis)}
}

func (c *SimulatedChain) LatestBlock(ctx context.Context) (types.Block, error) {
	if err := ctx.Err(); err != nil {
		return types.Block{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyBlock(c.head), nil
}

func (c *SimulatedChain) Submit(txHash string) {
	c.mu.Lock()
	c.pending = append(c.pending, txHash)
	c.mu.Unlock()
}

// Mine seals the pending transactions into a new head and returns it.
func (c *SimulatedChain) Mine() types.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	parent := c.head
	txs := c.pending
	c.pending = nil
	if txs == nil {
		txs = []string{}
	}

	number := new(big.Int).Add(parent.Number, big.NewInt(1))
	parts := [][]byte{common.HexToHash(parent.Hash).Bytes(), number.Bytes()}
	for _, tx := range txs {
		parts = append(parts, common.HexToHash(tx).Bytes())
	}
	txRoot := EmptyRootHash.Hex()
	if len(txs) > 0 {
		txRoot = crypto.Keccak256Hash(parts[2:]...).Hex()
	}

	head := copyBlock(parent)
	head.Number = number
	head.ParentHash = parent.Hash
	head.Hash = crypto.Keccak256Hash(parts...).Hex()
	head.Timestamp = new(big.Int).Add(parent.Timestamp, big.NewInt(12))
	head.GasUsed = big.NewInt(int64(21_000 * len(txs)))
	head.Transactions = txs
	head.TransactionsRoot = &txRoot
	c.head = head
	return copyBlock(head)
}

// copyBlock copies the slices and pointers of b so that callers cannot
// alias chain state.
func copyBlock(b types.Block) types.Block {
	out := b
	for _, n := range []**big.Int{
		&out.BaseFeePerGas, &out.Difficulty, &out.GasLimit, &out.GasUsed, &out.Nonce,
		&out.Number, &out.Size, &out.Timestamp, &out.TotalDifficulty,
	} {
		if *n != nil {
			*n = new(big.Int).Set(*n)
		}
	}
	out.Transactions = append([]string{}, b.Transactions...)
	out.Uncles = append([]string{}, b.Uncles...)
	if b.TransactionsRoot != nil {
		root := *b.TransactionsRoot
		out.TransactionsRoot = &root
	}
	return out
}
