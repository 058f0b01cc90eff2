package bridgegrpc

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	bridge "github.com/Stephen-Kimoi/icp-evm-rust-bridge"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/server"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// Compile-time interface check.
var _ BackendServer = (*GRPCServer)(nil)

// GRPCServer serves a bridge backend over gRPC. Payloads stay
// wire.Message values end to end; decoding against the schema happens
// in the wrapped server.Server.
type GRPCServer struct {
	srv *server.Server
}

// NewGRPCServer creates a gRPC server wrapping the given backend.
func NewGRPCServer(b bridge.Backend, opts ...server.Option) (*GRPCServer, error) {
	srv, err := server.New(b, opts...)
	if err != nil {
		return nil, err
	}
	return &GRPCServer{srv: srv}, nil
}

// Register adds the bridge service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterBackendServer(gs, s.srv.Schema(), s)
}

// Serve starts the gRPC server on the given listener.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

// Server returns the underlying server for advanced use.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

func (s *GRPCServer) Handle(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error) {
	resp, err := s.srv.Handle(ctx, procedure, args)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

// toStatus maps dispatcher failures onto gRPC status codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	if _, ok := bridge.IsUnknownProcedure(err); ok {
		return status.Error(codes.Unimplemented, err.Error())
	}
	if _, ok := server.IsArgument(err); ok {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	var resErr *server.ResultError
	if errors.As(err, &resErr) {
		return status.Error(codes.Internal, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}
