package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/types"
)

// snapshot is everything the dashboard shows.
type snapshot struct {
	address string
	count   types.CountOutcome
	block   types.Block
	hashes  []string
}

// loadSnapshot issues the four read calls concurrently. Any call
// failure cancels the rest.
func loadSnapshot(ctx context.Context, p *client.Proxy) (snapshot, error) {
	var s snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.address, err = p.GetCanisterEthAddress(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.count, err = p.GetCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.block, err = p.GetLatestEthereumBlock(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.hashes, err = p.GetStoredTransactionHashes(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return s, nil
}

func (s snapshot) write(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "address\t%s\n", s.address)
	fmt.Fprintf(tw, "count\t%s\n", types.MatchOutcome(s.count,
		func(n uint64) string { return fmt.Sprint(n) },
		func(msg string) string { return "unavailable: " + msg },
	))
	fmt.Fprintf(tw, "block\t%s\n", blockLine(s.block))
	fmt.Fprintf(tw, "hashes\t%d\n", len(s.hashes))
	for _, h := range s.hashes {
		fmt.Fprintf(tw, "\t%s\n", h)
	}
	return tw.Flush()
}

func blockLine(b types.Block) string {
	line := "#" + b.Number.String() + " " + b.Hash
	if ts, err := b.Time(); err == nil {
		line += " " + ts.Format("2006-01-02 15:04:05 UTC")
	}
	return fmt.Sprintf("%s (%d txs)", line, len(b.Transactions))
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print address, counter, latest block and stored hashes",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, out io.Writer, p *client.Proxy, _ []string) error {
			s, err := loadSnapshot(ctx, p)
			if err != nil {
				return err
			}
			return s.write(out)
		}),
	}
}
