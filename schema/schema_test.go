package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
)

func TestBackend_Registration(t *testing.T) {
	assert.Equal(t, 7, schema.Backend.Len())
	assert.Equal(t, []string{
		"call_decrease_count",
		"call_increase_count",
		"get_canister_eth_address",
		"get_count",
		"get_latest_ethereum_block",
		"get_stored_transaction_hashes",
		"store_transaction_hash",
	}, schema.Backend.Names())

	sig, err := schema.Backend.Describe(schema.StoreTransactionHash)
	require.NoError(t, err)
	assert.True(t, idl.EqualTuple([]*idl.Type{idl.Text()}, sig.Args))
	assert.Empty(t, sig.Results)

	sig, err = schema.Backend.Describe(schema.GetCount)
	require.NoError(t, err)
	assert.Empty(t, sig.Args)
	assert.Equal(t, "get_count : () -> (variant { Err : text; Ok : nat64 })", sig.String())
}

func TestBackend_BlockHasTwentyRequiredFields(t *testing.T) {
	fields := schema.BlockType.Fields()
	require.Len(t, fields, 21)
	required := 0
	for _, f := range fields {
		if f.Type.Kind() != idl.KindOpt {
			required++
		}
	}
	assert.Equal(t, 20, required)
	root, ok := schema.BlockType.Field("transactionsRoot")
	require.True(t, ok)
	assert.True(t, idl.Equal(idl.Opt(idl.Text()), root))
}

func TestDescribe_Unknown(t *testing.T) {
	_, err := schema.Backend.Describe("get_balance")
	require.Error(t, err)
	e, ok := bridge.IsUnknownProcedure(err)
	require.True(t, ok)
	assert.Equal(t, "get_balance", e.Procedure)
}

func TestNew_Rejects(t *testing.T) {
	_, err := schema.New("s", schema.Signature{Name: "a"}, schema.Signature{Name: "a"})
	assert.ErrorContains(t, err, "duplicate")

	_, err = schema.New("s", schema.Signature{})
	assert.ErrorContains(t, err, "empty")

	_, err = schema.New("s", schema.Signature{Name: "a", Args: []*idl.Type{nil}})
	assert.Error(t, err)

	assert.Panics(t, func() { schema.MustNew("s", schema.Signature{}) })
}

func TestSchema_IsolatedFromCaller(t *testing.T) {
	args := []*idl.Type{idl.Text()}
	s := schema.MustNew("s", schema.Signature{Name: "a", Args: args})
	args[0] = idl.Nat()
	sig, err := s.Describe("a")
	require.NoError(t, err)
	assert.True(t, idl.Equal(idl.Text(), sig.Args[0]))
}

func TestBind(t *testing.T) {
	_, err := schema.Backend.Bind(schema.StoreTransactionHash, []*idl.Type{idl.Text()}, nil)
	require.NoError(t, err)

	// A binding that expects a result where the registration has none is
	// a construction error.
	_, err = schema.Backend.Bind(schema.StoreTransactionHash, []*idl.Type{idl.Text()}, []*idl.Type{idl.Text()})
	var bindErr *schema.BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, schema.StoreTransactionHash, bindErr.Procedure)
	assert.Contains(t, bindErr.Reason, "results")

	_, err = schema.Backend.Bind(schema.GetCount, nil, []*idl.Type{schema.TextResultType})
	assert.ErrorAs(t, err, &bindErr)

	_, err = schema.Backend.Bind("get_balance", nil, nil)
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "not registered", bindErr.Reason)
}

func TestBind_StructuralNotIdentity(t *testing.T) {
	rebuilt := idl.Variant(idl.F("Err", idl.Text()), idl.F("Ok", idl.Nat64()))
	_, err := schema.Backend.Bind(schema.GetCount, nil, []*idl.Type{rebuilt})
	assert.NoError(t, err)
}

func TestDID(t *testing.T) {
	did := schema.Backend.DID()
	assert.True(t, strings.HasPrefix(did, "service : {\n"))
	assert.Contains(t, did, "  store_transaction_hash : (text) -> ();\n")
	assert.Contains(t, did, "  get_stored_transaction_hashes : () -> (vec text);\n")
	assert.Contains(t, did, "transactionsRoot : opt text")
}
