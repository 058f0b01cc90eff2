package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// newProcedureCmds returns one typed command per backend procedure.
func newProcedureCmds(a *app) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "address",
			Short: "Print the backend's Ethereum address",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				addr, err := p.GetCanisterEthAddress(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, addr)
				return nil
			}),
		},
		{
			Use:   "count",
			Short: "Print the counter",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				o, err := p.GetCount(ctx)
				if err != nil {
					return err
				}
				return printOutcome(out, schema.GetCount, o)
			}),
		},
		{
			Use:   "increase",
			Short: "Increase the counter and print the transaction hash",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				o, err := p.CallIncreaseCount(ctx)
				if err != nil {
					return err
				}
				return printOutcome(out, schema.CallIncreaseCount, o)
			}),
		},
		{
			Use:   "decrease",
			Short: "Decrease the counter and print the transaction hash",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				o, err := p.CallDecreaseCount(ctx)
				if err != nil {
					return err
				}
				return printOutcome(out, schema.CallDecreaseCount, o)
			}),
		},
		{
			Use:   "block",
			Short: "Print the latest Ethereum block as JSON",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				b, err := p.GetLatestEthereumBlock(ctx)
				if err != nil {
					return err
				}
				data, err := wire.MarshalJSON(schema.BlockType, b.Value())
				if err != nil {
					return err
				}
				return printJSON(out, data)
			}),
		},
		{
			Use:   "hashes",
			Short: "Print the stored transaction hashes, oldest first",
			Args:  cobra.NoArgs,
			RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
				hashes, err := p.GetStoredTransactionHashes(ctx)
				if err != nil {
					return err
				}
				for _, h := range hashes {
					fmt.Fprintln(out, h)
				}
				return nil
			}),
		},
		{
			Use:   "store <hash>",
			Short: "Append a transaction hash to the backend's log",
			Args:  cobra.ExactArgs(1),
			RunE: a.run(func(ctx context.Context, _ io.Writer, p *client.Proxy, args []string) error {
				return p.StoreTransactionHash(ctx, args[0])
			}),
		},
	}
}

func printOutcome[T any](out io.Writer, procedure string, o types.Outcome[T]) error {
	return types.MatchOutcome(o,
		func(v T) error {
			fmt.Fprintln(out, v)
			return nil
		},
		func(msg string) error {
			return &outcomeError{procedure: procedure, msg: msg}
		},
	)
}

func printJSON(out io.Writer, data []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <procedure> [json-args]",
		Short: "Call any registered procedure with a JSON argument tuple",
		Example: `  bridgectl call get_count
  bridgectl call store_transaction_hash '["0x5c50..."]'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, args []string) error {
			name := args[0]
			sig, err := p.Schema().Describe(name)
			if err != nil {
				return err
			}
			var body []byte
			if len(args) == 2 {
				body = []byte(args[1])
			}
			vs, err := wire.UnmarshalTupleJSON(sig.Args, body)
			if err != nil {
				return &bridge.EncodeError{Procedure: name, Err: err}
			}
			results, err := p.Call(ctx, name, vs...)
			if err != nil {
				return err
			}
			data, err := wire.MarshalTupleJSON(sig.Results, results)
			if err != nil {
				return err
			}
			return printJSON(out, data)
		}),
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the backend service description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), schema.Backend.DID())
			return err
		},
	}
}
