package bridgegrpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/schema"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

// ServiceName is the gRPC service every bridge backend is served under.
const ServiceName = "icp.evm.bridge.v1.Backend"

// BackendServer is the server-side interface for the bridge gRPC
// service. One method serves every procedure.
type BackendServer interface {
	Handle(ctx context.Context, procedure string, args *wire.Message) (*wire.Message, error)
}

// RegisterBackendServer registers srv on a gRPC server with one method
// per procedure of s.
func RegisterBackendServer(gs *grpc.Server, s *schema.Schema, srv BackendServer) {
	desc := ServiceDesc(s)
	gs.RegisterService(&desc, srv)
}

// ServiceDesc builds the manual gRPC service descriptor for s. Method
// names are the procedure names.
func ServiceDesc(s *schema.Schema) grpc.ServiceDesc {
	names := s.Names()
	methods := make([]grpc.MethodDesc, len(names))
	for i, name := range names {
		methods[i] = grpc.MethodDesc{MethodName: name, Handler: methodHandler(name)}
	}
	return grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*BackendServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    s.Service(),
	}
}

func methodHandler(procedure string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(wire.Message)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(BackendServer).Handle(ctx, procedure, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(procedure)}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(BackendServer).Handle(ctx, procedure, req.(*wire.Message))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// FullMethod builds the full gRPC method path of a procedure.
func FullMethod(procedure string) string {
	return "/" + ServiceName + "/" + procedure
}

// Procedure extracts the procedure name from a full method path. It
// returns the input unchanged for methods of other services.
func Procedure(fullMethod string) string {
	if rest, ok := strings.CutPrefix(fullMethod, "/"+ServiceName+"/"); ok {
		return rest
	}
	return fullMethod
}
