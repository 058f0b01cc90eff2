// Package logging builds the zerolog loggers used by the bridge
// binaries and adapts them to the call binding and the gRPC server.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/client"
	bridgegrpc "github.com/Stephen-Kimoi/icp-evm-rust-bridge/grpc"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates a logger writing to w at level. The text format is a
// colorless console writer; json writes one object per line.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	switch format {
	case FormatText, "":
		w = &zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want %s or %s", format, FormatText, FormatJSON)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Observer returns a client.Observer that logs every finished call.
// Successful calls are logged at debug, failures at warn.
func Observer(l zerolog.Logger) client.Observer {
	return client.ObserverFunc(func(inv *client.Invocation) {
		ev := l.Debug()
		if inv.Err() != nil {
			ev = l.Warn().Err(inv.Err()).Str("class", bridge.ErrorClass(inv.Err()))
		}
		ev.Str("procedure", inv.Procedure()).
			Str("state", inv.State().String()).
			Dur("duration", inv.Duration()).
			Msg("call")
	})
}

// UnaryServerInterceptor logs every served procedure.
func UnaryServerInterceptor(l zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		ev := l.Debug()
		if err != nil {
			ev = l.Warn().Err(err)
		}
		ev.Str("procedure", bridgegrpc.Procedure(info.FullMethod)).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("served")
		return resp, err
	}
}
