package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/gateway"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	bridgetest "github.com/Stephen-Kimoi/icp-evm-rust-bridge/testing"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

func newServer(t *testing.T, c gateway.Caller, opts ...gateway.Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(gateway.New(c, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, procedure, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/call/"+procedure, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func errorKind(t *testing.T, body string) string {
	t.Helper()
	var eb gateway.ErrorBody
	require.NoError(t, json.Unmarshal([]byte(body), &eb))
	return eb.Kind
}

func TestGateway_Calls(t *testing.T) {
	mock := &bridgetest.MockBackend{
		GetCountFn: func(context.Context) (types.CountOutcome, error) {
			return types.Err[uint64]("counter uninitialized"), nil
		},
	}
	h := bridgetest.NewHarness(t, mock)
	srv := newServer(t, h.Proxy())

	code, body := post(t, srv, schema.GetCanisterEthAddress, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["`+bridgetest.MockAddress+`"]`, body)

	code, body = post(t, srv, schema.GetCount, "[]")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[{"Err": "counter uninitialized"}]`, body)

	code, body = post(t, srv, schema.StoreTransactionHash, `["0xabc"]`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)
	assert.Equal(t, []string{"0xabc"}, h.Hashes())

	code, body = post(t, srv, schema.GetStoredTransactionHashes, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[["0xabc"]]`, body)
}

func TestGateway_BlockNaturalsAreStrings(t *testing.T) {
	h := bridgetest.NewHarness(t, &bridgetest.MockBackend{})
	srv := newServer(t, h.Proxy())

	code, body := post(t, srv, schema.GetLatestEthereumBlock, "")
	require.Equal(t, http.StatusOK, code, body)
	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out, 1)
	assert.Equal(t, bridgetest.SampleTotalDifficulty().String(), out[0][types.FieldTotalDifficulty])
	assert.Equal(t, []any{}, out[0][types.FieldTransactionsRoot])
}

func TestGateway_Failures(t *testing.T) {
	mock := &bridgetest.MockBackend{}
	h := bridgetest.NewHarness(t, mock)
	srv := newServer(t, h.Proxy())

	code, body := post(t, srv, "transfer_ownership", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "unknown_procedure", errorKind(t, body))

	code, body = post(t, srv, schema.StoreTransactionHash, `[42]`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "encode", errorKind(t, body))

	code, _ = post(t, srv, schema.StoreTransactionHash, `{`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, srv, schema.StoreTransactionHash, `[]`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int64(0), mock.StoreTransactionHashCalls.Load())
}

func TestGateway_UpstreamFailures(t *testing.T) {
	down, err := client.New(bridgetest.Fail(errors.New("connection refused")))
	require.NoError(t, err)
	code, body := post(t, newServer(t, down), schema.GetCount, "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "transport", errorKind(t, body))

	garbled, err := client.New(&bridgetest.Transport{
		CallFn: func(context.Context, string, *wire.Message) (*wire.Message, error) {
			return bridgetest.EncodeLoose(), nil
		},
	})
	require.NoError(t, err)
	code, body = post(t, newServer(t, garbled), schema.GetCount, "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "decode", errorKind(t, body))
}

func TestGateway_HashValidation(t *testing.T) {
	mock := &bridgetest.MockBackend{}
	h := bridgetest.NewHarness(t, mock)
	srv := newServer(t, h.Proxy(), gateway.WithHashValidation())

	code, _ := post(t, srv, schema.StoreTransactionHash, `["0xabc"]`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = post(t, srv, schema.StoreTransactionHash, `["not hex"]`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, int64(0), mock.StoreTransactionHashCalls.Load())

	code, _ = post(t, srv, schema.StoreTransactionHash, `["`+bridgetest.ZeroHash+`"]`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{bridgetest.ZeroHash}, h.Hashes())
}

func TestGateway_BodyLimit(t *testing.T) {
	h := bridgetest.NewHarness(t, &bridgetest.MockBackend{})
	srv := newServer(t, h.Proxy())
	big := `["` + strings.Repeat("a", gateway.MaxBodyBytes) + `"]`
	code, _ := post(t, srv, schema.StoreTransactionHash, big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
}

func TestGateway_Describe(t *testing.T) {
	h := bridgetest.NewHarness(t, &bridgetest.MockBackend{})
	srv := newServer(t, h.Proxy())

	resp, err := http.Get(srv.URL + "/procedures")
	require.NoError(t, err)
	defer resp.Body.Close()
	var procs []gateway.Procedure
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&procs))
	require.Len(t, procs, schema.Backend.Len())
	assert.Equal(t, schema.Backend.Names()[0], procs[0].Name)

	resp, err = http.Get(srv.URL + "/schema.did")
	require.NoError(t, err)
	defer resp.Body.Close()
	did, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, schema.Backend.DID(), string(did))

	resp, err = http.Get(srv.URL + "/call/" + schema.GetCount)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, gateway.Status(errors.New("boom")))
}
