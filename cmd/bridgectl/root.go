package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/config"
	bridgegrpc "github.com/Stephen-Kimoi/icp-evm-rust-bridge/grpc"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/logging"
)

// app is the state shared by all subcommands.
type app struct {
	cfgPath string
	cfg     config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "bridgectl",
		Short: "Serve and call the ICP EVM bridge backend",
		Long: `bridgectl talks to the icp_evm_rust_bridge_backend actor over gRPC.

Configuration is read from --config (YAML), then BRIDGE_* environment
variables, then command-line flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.load(cmd) },
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "YAML config file")
	f.String("endpoint", "", "gRPC address of the backend")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("log-format", "", "log format: text or json")
	f.Duration("timeout", 0, "deadline for each call, 0 for none")

	root.AddCommand(
		newServeCmd(a),
		newCallCmd(a),
		newSchemaCmd(),
		newDashboardCmd(a),
	)
	root.AddCommand(newProcedureCmds(a)...)
	return root
}

// load resolves the configuration for cmd and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	overrideString(f, "endpoint", &cfg.Endpoint)
	overrideString(f, "listen", &cfg.Listen)
	overrideString(f, "gateway", &cfg.Gateway)
	overrideString(f, "metrics", &cfg.Metrics)
	overrideString(f, "log-level", &cfg.Log.Level)
	overrideString(f, "log-format", &cfg.Log.Format)
	overrideString(f, "key", &cfg.Backend.Key)
	if f.Changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func overrideString(f *pflag.FlagSet, name string, dst *string) {
	if f.Lookup(name) != nil && f.Changed(name) {
		*dst, _ = f.GetString(name)
	}
}

// dial connects a proxy to the configured endpoint.
func (a *app) dial(ctx context.Context) (*client.Proxy, error) {
	conn, err := bridgegrpc.Dial(ctx, a.cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}
	p, err := client.New(conn, client.WithObserver(logging.Observer(a.logger)))
	if err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

// procedureFunc is the body of a command that calls the backend.
type procedureFunc func(ctx context.Context, out io.Writer, p *client.Proxy, args []string) error

// run dials, applies the call deadline, runs fn and closes the
// connection.
func (a *app) run(fn procedureFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if a.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
			defer cancel()
		}
		p, err := a.dial(ctx)
		if err != nil {
			return err
		}
		defer p.Close()
		return fn(ctx, cmd.OutOrStdout(), p, args)
	}
}

// outcomeError reports an Err outcome as a command failure.
type outcomeError struct {
	procedure string
	msg       string
}

func (e *outcomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.procedure, e.msg)
}
