package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// NodeServiceServer is the interface *Server implements; kept separate from
// Server itself so the generated-style registration below can be unit
// tested against a fake.
type NodeServiceServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	SendPayment(context.Context, *SendPaymentRequest) (*SendPaymentResponse, error)
	GetSnarkWork(context.Context, *GetSnarkWorkRequest) (*GetSnarkWorkResponse, error)
	SubmitSnarkWork(context.Context, *SubmitSnarkWorkRequest) (*SubmitSnarkWorkResponse, error)
}

func unaryHandler(
	run func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error),
	newReq func() interface{},
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := newReq()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return run(srv, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/node.NodeService/"}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return run(srv, ctx, req)
		}
		return interceptor(ctx, req, info, handler)
	}
}

// nodeServiceDesc is the hand-authored equivalent of a protoc-generated
// grpc.ServiceDesc (spec §6.4): one MethodDesc per unary RPC, registered
// against the jsonCodec instead of a .proto-defined wire format.
var nodeServiceDesc = grpc.ServiceDesc{
	ServiceName: "node.NodeService",
	HandlerType: (*NodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unaryHandler(
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(NodeServiceServer).GetStatus(ctx, req.(*GetStatusRequest))
				},
				func() interface{} { return new(GetStatusRequest) },
			),
		},
		{
			MethodName: "GetBalance",
			Handler: unaryHandler(
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(NodeServiceServer).GetBalance(ctx, req.(*GetBalanceRequest))
				},
				func() interface{} { return new(GetBalanceRequest) },
			),
		},
		{
			MethodName: "SendPayment",
			Handler: unaryHandler(
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(NodeServiceServer).SendPayment(ctx, req.(*SendPaymentRequest))
				},
				func() interface{} { return new(SendPaymentRequest) },
			),
		},
		{
			MethodName: "GetSnarkWork",
			Handler: unaryHandler(
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(NodeServiceServer).GetSnarkWork(ctx, req.(*GetSnarkWorkRequest))
				},
				func() interface{} { return new(GetSnarkWorkRequest) },
			),
		},
		{
			MethodName: "SubmitSnarkWork",
			Handler: unaryHandler(
				func(srv interface{}, ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(NodeServiceServer).SubmitSnarkWork(ctx, req.(*SubmitSnarkWorkRequest))
				},
				func() interface{} { return new(SubmitSnarkWorkRequest) },
			),
		},
	},
	Metadata: "node.rpc",
}

// RegisterNodeServiceServer registers srv against s, mirroring the
// generated-code pattern the teacher's ttp-processor example uses
// (eventservice.RegisterEventServiceServer).
func RegisterNodeServiceServer(s grpc.ServiceRegistrar, srv NodeServiceServer) {
	s.RegisterService(&nodeServiceDesc, srv)
}
