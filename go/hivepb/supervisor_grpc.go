package hivepb

import (
	"context"

	"google.golang.org/grpc"
)

// TransactionSupervisorServer is the client-facing RPC surface of a cell's
// two-phase commit engine (spec.md §6).
type TransactionSupervisorServer interface {
	StartTransaction(context.Context, *StartTransactionRequest) (*StartTransactionResponse, error)
	CommitTransaction(context.Context, *CommitTransactionRequest) (*CommitTransactionResponse, error)
	AbortTransaction(context.Context, *AbortTransactionRequest) (*AbortTransactionResponse, error)
	PingTransaction(context.Context, *PingTransactionRequest) (*PingTransactionResponse, error)
}

// TransactionSupervisorClient is the client stub for TransactionSupervisorServer.
type TransactionSupervisorClient interface {
	StartTransaction(ctx context.Context, in *StartTransactionRequest, opts ...grpc.CallOption) (*StartTransactionResponse, error)
	CommitTransaction(ctx context.Context, in *CommitTransactionRequest, opts ...grpc.CallOption) (*CommitTransactionResponse, error)
	AbortTransaction(ctx context.Context, in *AbortTransactionRequest, opts ...grpc.CallOption) (*AbortTransactionResponse, error)
	PingTransaction(ctx context.Context, in *PingTransactionRequest, opts ...grpc.CallOption) (*PingTransactionResponse, error)
}

type transactionSupervisorClient struct {
	cc *grpc.ClientConn
}

// NewTransactionSupervisorClient builds a client over an established
// connection, forcing the gogoproto wire codec (see codec.go).
func NewTransactionSupervisorClient(cc *grpc.ClientConn) TransactionSupervisorClient {
	return &transactionSupervisorClient{cc: cc}
}

func (c *transactionSupervisorClient) StartTransaction(ctx context.Context, in *StartTransactionRequest, opts ...grpc.CallOption) (*StartTransactionResponse, error) {
	var out = new(StartTransactionResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.TransactionSupervisor/StartTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionSupervisorClient) CommitTransaction(ctx context.Context, in *CommitTransactionRequest, opts ...grpc.CallOption) (*CommitTransactionResponse, error) {
	var out = new(CommitTransactionResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.TransactionSupervisor/CommitTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionSupervisorClient) AbortTransaction(ctx context.Context, in *AbortTransactionRequest, opts ...grpc.CallOption) (*AbortTransactionResponse, error) {
	var out = new(AbortTransactionResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.TransactionSupervisor/AbortTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transactionSupervisorClient) PingTransaction(ctx context.Context, in *PingTransactionRequest, opts ...grpc.CallOption) (*PingTransactionResponse, error) {
	var out = new(PingTransactionResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.TransactionSupervisor/PingTransaction", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _TransactionSupervisor_StartTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(StartTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionSupervisorServer).StartTransaction(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.TransactionSupervisor/StartTransaction"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionSupervisorServer).StartTransaction(ctx, req.(*StartTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionSupervisor_CommitTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(CommitTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionSupervisorServer).CommitTransaction(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.TransactionSupervisor/CommitTransaction"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionSupervisorServer).CommitTransaction(ctx, req.(*CommitTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionSupervisor_AbortTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(AbortTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionSupervisorServer).AbortTransaction(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.TransactionSupervisor/AbortTransaction"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionSupervisorServer).AbortTransaction(ctx, req.(*AbortTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransactionSupervisor_PingTransaction_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(PingTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransactionSupervisorServer).PingTransaction(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.TransactionSupervisor/PingTransaction"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransactionSupervisorServer).PingTransaction(ctx, req.(*PingTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TransactionSupervisorServiceDesc is the grpc.ServiceDesc for registering
// a TransactionSupervisorServer implementation with a grpc.Server.
var TransactionSupervisorServiceDesc = grpc.ServiceDesc{
	ServiceName: "hive.TransactionSupervisor",
	HandlerType: (*TransactionSupervisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartTransaction", Handler: _TransactionSupervisor_StartTransaction_Handler},
		{MethodName: "CommitTransaction", Handler: _TransactionSupervisor_CommitTransaction_Handler},
		{MethodName: "AbortTransaction", Handler: _TransactionSupervisor_AbortTransaction_Handler},
		{MethodName: "PingTransaction", Handler: _TransactionSupervisor_PingTransaction_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hive/supervisor.proto",
}

// RegisterTransactionSupervisorServer registers srv with s.
func RegisterTransactionSupervisorServer(s grpc.ServiceRegistrar, srv TransactionSupervisorServer) {
	s.RegisterService(&TransactionSupervisorServiceDesc, srv)
}
