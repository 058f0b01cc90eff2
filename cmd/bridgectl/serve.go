package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/example/backend"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/gateway"
	bridgegrpc "github.com/Stephen-Kimoi/icp-evm-rust-bridge/grpc"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/local"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/logging"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/metrics"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var mineEvery time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference backend over gRPC, the JSON gateway and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, mineEvery)
		},
	}
	f := cmd.Flags()
	f.String("listen", "", "gRPC listen address")
	f.String("gateway", "", "JSON gateway listen address, empty to disable")
	f.String("metrics", "", "metrics listen address, empty to disable")
	f.String("key", "", "hex secp256k1 signing key, empty to generate one")
	f.DurationVar(&mineEvery, "mine-interval", 12*time.Second, "seal a simulated block this often, 0 to disable")
	return cmd
}

func (a *app) newBackend(chain *backend.SimulatedChain) (*backend.Backend, error) {
	opts := []backend.Option{
		backend.WithBlockSource(chain),
		backend.WithLogger(a.logger.With().Str("component", "backend").Logger()),
	}
	if key := a.cfg.Backend.Key; key != "" {
		return backend.NewFromHex(strings.TrimPrefix(key, "0x"), opts...)
	}
	return backend.New(opts...)
}

func (a *app) serve(ctx context.Context, mineEvery time.Duration) error {
	chain := backend.NewSimulatedChain(backend.GenesisBlock())
	b, err := a.newBackend(chain)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	col, err := metrics.New(reg)
	if err != nil {
		return err
	}

	gsrv, err := bridgegrpc.NewGRPCServer(b)
	if err != nil {
		return err
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		logging.UnaryServerInterceptor(a.logger),
		col.UnaryServerInterceptor(),
	))
	gsrv.Register(gs)
	lis, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gs.Serve(lis) })
	g.Go(func() error {
		<-ctx.Done()
		gs.GracefulStop()
		return nil
	})
	a.logger.Info().
		Str("listen", lis.Addr().String()).
		Str("address", b.Address().Hex()).
		Msg("serving bridge backend")

	if a.cfg.Gateway != "" {
		proxy, err := client.New(local.NewTransport(gsrv.Server()),
			client.WithObserver(client.Observers{col, logging.Observer(a.logger)}),
		)
		if err != nil {
			return err
		}
		h := gateway.New(proxy, gateway.WithLogger(a.logger), gateway.WithHashValidation()).Handler()
		a.serveHTTP(ctx, g, "gateway", a.cfg.Gateway, h)
	}
	if a.cfg.Metrics != "" {
		r := chi.NewRouter()
		r.Handle("/metrics", metrics.Handler(reg))
		a.serveHTTP(ctx, g, "metrics", a.cfg.Metrics, r)
	}
	if mineEvery > 0 {
		g.Go(func() error {
			a.mine(ctx, chain, mineEvery)
			return nil
		})
	}
	return g.Wait()
}

// serveHTTP runs an HTTP server in g until ctx is done.
func (a *app) serveHTTP(ctx context.Context, g *errgroup.Group, name, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		a.logger.Info().Str("listen", addr).Msgf("serving %s", name)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}

// mine seals a simulated block every interval until ctx is done.
func (a *app) mine(ctx context.Context, chain *backend.SimulatedChain, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			blk := chain.Mine()
			a.logger.Debug().
				Str("number", blk.Number.String()).
				Int("txs", len(blk.Transactions)).
				Msg("sealed block")
		}
	}
}
