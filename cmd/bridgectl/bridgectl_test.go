package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/example/backend"
	bridgegrpc "github.com/Stephen-Kimoi/icp-evm-rust-bridge/grpc"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
)

const (
	hardhatKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func startBackend(t *testing.T) string {
	t.Helper()
	b, err := backend.NewFromHex(hardhatKey)
	require.NoError(t, err)
	gsrv, err := bridgegrpc.NewGRPCServer(b)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	gs := grpc.NewServer()
	gsrv.Register(gs)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.GracefulStop)
	return lis.Addr().String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Equal(t, schema.Backend.DID(), out)
}

func TestProcedures(t *testing.T) {
	ep := "--endpoint=" + startBackend(t)

	out, err := execute(t, ep, "address")
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress+"\n", out)

	out, err = execute(t, ep, "count")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	inc, err := execute(t, ep, "increase")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(inc, "0x"))

	out, err = execute(t, ep, "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = execute(t, ep, "decrease")
	require.NoError(t, err)

	_, err = execute(t, ep, "decrease")
	var oe *outcomeError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, schema.CallDecreaseCount, oe.procedure)
	assert.Equal(t, backend.ErrCounterAtZero, oe.msg)

	_, err = execute(t, ep, "store", "0xfeed")
	require.NoError(t, err)

	out, err = execute(t, ep, "hashes")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.TrimSpace(inc), lines[0])
	assert.Equal(t, "0xfeed", lines[2])

	out, err = execute(t, ep, "block")
	require.NoError(t, err)
	assert.Contains(t, out, `"totalDifficulty": "58750003716598352816469"`)
}

func TestCall(t *testing.T) {
	ep := "--endpoint=" + startBackend(t)

	out, err := execute(t, ep, "call", schema.StoreTransactionHash, `["0xabc"]`)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = execute(t, ep, "call", schema.GetStoredTransactionHashes)
	require.NoError(t, err)
	assert.JSONEq(t, `[["0xabc"]]`, out)

	_, err = execute(t, ep, "call", "transfer_ownership")
	_, ok := bridge.IsUnknownProcedure(err)
	assert.True(t, ok, "got %v", err)

	_, err = execute(t, ep, "call", schema.StoreTransactionHash, `[1]`)
	_, ok = bridge.IsEncode(err)
	assert.True(t, ok, "got %v", err)
}

func TestDashboard(t *testing.T) {
	ep := "--endpoint=" + startBackend(t)
	_, err := execute(t, ep, "increase")
	require.NoError(t, err)

	out, err := execute(t, ep, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, hardhatAddress)
	assert.Regexp(t, `count\s+1\n`, out)
	assert.Regexp(t, `hashes\s+1\n`, out)
	assert.Contains(t, out, "#0 ")
}

func TestUnreachableEndpoint(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	_, err = execute(t, "--endpoint="+addr, "--timeout=2s", "count")
	require.Error(t, err)
	assert.True(t, bridge.Retriable(err), "got %v", err)
}

func TestConfigFile(t *testing.T) {
	addr := startBackend(t)
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: "+addr+"\nlog:\n  level: debug\n"), 0o600))

	out, err := execute(t, "--config", path, "address")
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress+"\n", out)

	_, err = execute(t, "--config", path, "--log-format=yaml", "address")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"serve",
		"--listen=127.0.0.1:0",
		"--gateway=127.0.0.1:0",
		"--metrics=",
		"--mine-interval=10ms",
		"--key=0x" + hardhatKey,
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.NoError(t, cmd.ExecuteContext(ctx))
}
