package client_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	bridgetest "github.com/Stephen-Kimoi/icp-evm-rust-bridge/testing"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

func newProxy(t *testing.T, tr bridge.Transport, opts ...client.Option) *client.Proxy {
	t.Helper()
	p, err := client.New(tr, opts...)
	require.NoError(t, err)
	return p
}

func TestGetCount_Ok(t *testing.T) {
	tr := bridgetest.Respond([]*idl.Type{schema.CountResultType}, idl.VariantValue("Ok", idl.Nat64Value(42)))
	p := newProxy(t, tr)

	o, err := p.GetCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.TagOk, o.Tag())
	n, ok := o.Ok()
	require.True(t, ok)
	assert.Equal(t, uint64(42), n)
	assert.Equal(t, []string{schema.GetCount}, tr.Procedures())
}

func TestGetCount_ErrIsData(t *testing.T) {
	tr := bridgetest.Respond([]*idl.Type{schema.CountResultType}, idl.VariantValue("Err", idl.TextValue("counter uninitialized")))
	p := newProxy(t, tr)

	o, err := p.GetCount(context.Background())
	require.NoError(t, err, "an Err outcome is not a call failure")
	_, ok := o.Ok()
	assert.False(t, ok)
	msg, ok := o.Err()
	require.True(t, ok)
	assert.Equal(t, "counter uninitialized", msg)
}

func TestGetLatestEthereumBlock_OptionalAbsentAndEmptyUncles(t *testing.T) {
	want := bridgetest.SampleBlock()
	tr := bridgetest.Respond([]*idl.Type{schema.BlockType}, want.Value())
	p := newProxy(t, tr)

	b, err := p.GetLatestEthereumBlock(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b.TransactionsRoot)
	require.NotNil(t, b.Uncles)
	assert.Empty(t, b.Uncles)
	assert.Equal(t, want.Transactions, b.Transactions)
	assert.Equal(t, 0, bridgetest.SampleTotalDifficulty().Cmp(b.TotalDifficulty))
}

func TestGetLatestEthereumBlock_MissingEachRequiredField(t *testing.T) {
	full := bridgetest.SampleBlock().Value()
	for _, f := range schema.BlockType.Fields() {
		if f.Type.Kind() == idl.KindOpt {
			continue
		}
		t.Run(f.Label, func(t *testing.T) {
			tr := &bridgetest.Transport{CallFn: func(context.Context, string, *wire.Message) (*wire.Message, error) {
				return bridgetest.EncodeLoose(bridgetest.Without(full, f.Label)), nil
			}}
			p := newProxy(t, tr)

			_, err := p.GetLatestEthereumBlock(context.Background())
			require.Error(t, err)
			_, ok := bridge.IsProtocolDecode(err)
			assert.True(t, ok, "want ProtocolDecodeError, got %T", err)
			assert.ErrorIs(t, err, idl.ErrMissingField)
			var decErr *idl.DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, "$[0]."+f.Label, decErr.Path)
			assert.False(t, bridge.Retriable(err))
		})
	}
}

func TestGetCount_UnknownVariantTag(t *testing.T) {
	tr := &bridgetest.Transport{CallFn: func(context.Context, string, *wire.Message) (*wire.Message, error) {
		return bridgetest.EncodeLoose(idl.VariantValue("Pending", idl.TextValue("later"))), nil
	}}
	p := newProxy(t, tr)

	_, err := p.GetCount(context.Background())
	_, ok := bridge.IsProtocolDecode(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, idl.ErrUnknownVariantTag)
}

func TestStoreTransactionHash(t *testing.T) {
	var got []idl.Value
	tr := &bridgetest.Transport{CallFn: func(_ context.Context, _ string, args *wire.Message) (*wire.Message, error) {
		var err error
		got, err = wire.Decode([]*idl.Type{idl.Text()}, args)
		return &wire.Message{}, err
	}}
	p := newProxy(t, tr)

	require.NoError(t, p.StoreTransactionHash(context.Background(), "0xabc123"))
	require.Len(t, got, 1)
	s, _ := got[0].AsText()
	assert.Equal(t, "0xabc123", s)
}

func TestStoreTransactionHash_UnexpectedPayload(t *testing.T) {
	tr := bridgetest.Respond([]*idl.Type{idl.Text()}, idl.TextValue("surprise"))
	p := newProxy(t, tr)

	err := p.StoreTransactionHash(context.Background(), "0xabc")
	_, ok := bridge.IsProtocolDecode(err)
	assert.True(t, ok)
	assert.ErrorIs(t, err, idl.ErrMalformed)
}

func TestNew_RejectsDriftedSchema(t *testing.T) {
	// The shape the browser agent registers: the hash log procedures
	// are missing.
	var sigs []schema.Signature
	for _, sig := range schema.BackendSignatures() {
		if sig.Name != schema.StoreTransactionHash && sig.Name != schema.GetStoredTransactionHashes {
			sigs = append(sigs, sig)
		}
	}
	drifted := schema.MustNew("drifted", sigs...)

	_, err := client.New(&bridgetest.Transport{}, client.WithSchema(drifted))
	var bindErr *schema.BindingError
	require.ErrorAs(t, err, &bindErr)
}

func TestNew_RejectsResultOnUnitProcedure(t *testing.T) {
	var sigs []schema.Signature
	for _, sig := range schema.BackendSignatures() {
		if sig.Name == schema.StoreTransactionHash {
			sig.Results = []*idl.Type{idl.Text()}
		}
		sigs = append(sigs, sig)
	}
	_, err := client.New(&bridgetest.Transport{}, client.WithSchema(schema.MustNew("s", sigs...)))
	var bindErr *schema.BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, schema.StoreTransactionHash, bindErr.Procedure)
}

func TestNew_NilTransport(t *testing.T) {
	_, err := client.New(nil)
	assert.Error(t, err)
}

func extendedSchema() *schema.Schema {
	sigs := append(schema.BackendSignatures(), schema.Signature{
		Name: "set_count",
		Args: []*idl.Type{idl.Nat64()},
	}, schema.Signature{
		Name: "set_total",
		Args: []*idl.Type{idl.Nat()},
	})
	return schema.MustNew("extended", sigs...)
}

func TestCall_EncodeErrorBeforeTransport(t *testing.T) {
	var seen []*client.Invocation
	var mu sync.Mutex
	obs := client.ObserverFunc(func(inv *client.Invocation) {
		mu.Lock()
		seen = append(seen, inv)
		mu.Unlock()
	})
	tr := &bridgetest.Transport{}
	p := newProxy(t, tr, client.WithSchema(extendedSchema()), client.WithObserver(obs))

	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err := p.Call(context.Background(), "set_count", idl.NatValue(tooBig))
	encErr, ok := bridge.IsEncode(err)
	require.True(t, ok, "want EncodeError, got %v", err)
	assert.Equal(t, "set_count", encErr.Procedure)
	assert.ErrorIs(t, err, idl.ErrOverflow)
	assert.Zero(t, tr.Calls.Load())

	_, err = p.Call(context.Background(), "set_total", idl.NatValue(tooBig))
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.Calls.Load())

	require.Len(t, seen, 2)
	assert.Equal(t, client.StateIdle, seen[0].State())
	assert.Zero(t, seen[0].Duration())
	assert.Equal(t, client.StateDecoded, seen[1].State())
}

func TestCall_UnknownProcedure(t *testing.T) {
	tr := &bridgetest.Transport{}
	p := newProxy(t, tr)

	_, err := p.Call(context.Background(), "get_balance")
	e, ok := bridge.IsUnknownProcedure(err)
	require.True(t, ok)
	assert.Equal(t, "get_balance", e.Procedure)
	assert.Zero(t, tr.Calls.Load())
}

func TestCall_ArityMismatchIsEncodeError(t *testing.T) {
	tr := &bridgetest.Transport{}
	p := newProxy(t, tr)

	_, err := p.Call(context.Background(), schema.StoreTransactionHash)
	_, ok := bridge.IsEncode(err)
	assert.True(t, ok)
	assert.Zero(t, tr.Calls.Load())
}

func TestCall_TransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	var last *client.Invocation
	p := newProxy(t, bridgetest.Fail(boom), client.WithObserver(client.ObserverFunc(func(inv *client.Invocation) {
		last = inv
	})))

	_, err := p.GetCount(context.Background())
	te, ok := bridge.IsTransport(err)
	require.True(t, ok)
	assert.Equal(t, schema.GetCount, te.Procedure)
	assert.ErrorIs(t, err, boom)
	assert.True(t, bridge.Retriable(err))
	_, isDecode := bridge.IsProtocolDecode(err)
	assert.False(t, isDecode)

	require.NotNil(t, last)
	assert.Equal(t, client.StateTransportFailed, last.State())
	assert.Equal(t, err, last.Err())
}

func TestCall_TransportErrorNotDoubleWrapped(t *testing.T) {
	inner := &bridge.TransportError{Procedure: schema.GetCount, Err: context.Canceled}
	p := newProxy(t, bridgetest.Fail(inner))

	_, err := p.GetCount(context.Background())
	assert.Same(t, inner, err)
}

func TestCall_DecodeFailureState(t *testing.T) {
	var last *client.Invocation
	tr := bridgetest.Respond([]*idl.Type{idl.Nat()}, idl.NatUint64(42))
	p := newProxy(t, tr, client.WithObserver(client.ObserverFunc(func(inv *client.Invocation) { last = inv })))

	_, err := p.GetCount(context.Background())
	_, ok := bridge.IsProtocolDecode(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, idl.ErrTypeMismatch)
	assert.Equal(t, client.StateDecodeFailed, last.State())
}

func TestProxy_ConcurrentCallsAreIndependent(t *testing.T) {
	tr := &bridgetest.Transport{CallFn: func(_ context.Context, procedure string, _ *wire.Message) (*wire.Message, error) {
		switch procedure {
		case schema.GetCount:
			return bridgetest.MustEncode([]*idl.Type{schema.CountResultType}, idl.VariantValue("Ok", idl.Nat64Value(7))), nil
		case schema.GetCanisterEthAddress:
			return bridgetest.MustEncode([]*idl.Type{idl.Text()}, idl.TextValue(bridgetest.MockAddress)), nil
		}
		return nil, errors.New("unexpected")
	}}
	p := newProxy(t, tr)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			o, err := p.GetCount(context.Background())
			assert.NoError(t, err)
			n, _ := o.Ok()
			assert.Equal(t, uint64(7), n)
		}()
		go func() {
			defer wg.Done()
			addr, err := p.GetCanisterEthAddress(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, bridgetest.MockAddress, addr)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(40), tr.Calls.Load(), "no coalescing or deduplication")
}

func TestProxy_Close(t *testing.T) {
	tr := &bridgetest.Transport{}
	p := newProxy(t, tr)
	require.NoError(t, p.Close())
	assert.True(t, tr.Closed.Load())
}

func TestProxy_RoundTripThroughServer(t *testing.T) {
	mock := &bridgetest.MockBackend{
		CallDecreaseCountFn: func(context.Context) (types.TextOutcome, error) {
			return types.Err[string]("counter is already zero"), nil
		},
	}
	h := bridgetest.NewHarness(t, mock)

	assert.Equal(t, bridgetest.MockAddress, h.Address())
	assert.Equal(t, uint64(0), h.MustCount())
	assert.Equal(t, bridgetest.ZeroHash, bridgetest.MustOk(t, h.Increase()))
	assert.Equal(t, "counter is already zero", bridgetest.MustErr(t, h.Decrease()))

	blk := h.LatestBlock()
	assert.Equal(t, bridgetest.SampleBlock().Hash, blk.Hash)

	h.Store("0xabc")
	assert.Equal(t, []string{"0xabc"}, h.Hashes())
	assert.Equal(t, int64(1), mock.StoreTransactionHashCalls.Load())
}
