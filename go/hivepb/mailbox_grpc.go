package hivepb

import (
	"context"

	"google.golang.org/grpc"
)

// MailboxTransportServer is the inter-cell RPC surface of the mailbox
// layer (spec.md §4.1): ReceiveMessages and AcknowledgeMessages.
type MailboxTransportServer interface {
	ReceiveMessages(context.Context, *ReceiveMessagesRequest) (*ReceiveMessagesResponse, error)
	AcknowledgeMessages(context.Context, *AcknowledgeMessagesRequest) (*AcknowledgeMessagesResponse, error)
}

// MailboxTransportClient is the client stub for MailboxTransportServer.
type MailboxTransportClient interface {
	ReceiveMessages(ctx context.Context, in *ReceiveMessagesRequest, opts ...grpc.CallOption) (*ReceiveMessagesResponse, error)
	AcknowledgeMessages(ctx context.Context, in *AcknowledgeMessagesRequest, opts ...grpc.CallOption) (*AcknowledgeMessagesResponse, error)
}

type mailboxTransportClient struct {
	cc *grpc.ClientConn
}

// NewMailboxTransportClient builds a client over an established connection.
func NewMailboxTransportClient(cc *grpc.ClientConn) MailboxTransportClient {
	return &mailboxTransportClient{cc: cc}
}

func (c *mailboxTransportClient) ReceiveMessages(ctx context.Context, in *ReceiveMessagesRequest, opts ...grpc.CallOption) (*ReceiveMessagesResponse, error) {
	var out = new(ReceiveMessagesResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.MailboxTransport/ReceiveMessages", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *mailboxTransportClient) AcknowledgeMessages(ctx context.Context, in *AcknowledgeMessagesRequest, opts ...grpc.CallOption) (*AcknowledgeMessagesResponse, error) {
	var out = new(AcknowledgeMessagesResponse)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := c.cc.Invoke(ctx, "/hive.MailboxTransport/AcknowledgeMessages", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _MailboxTransport_ReceiveMessages_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(ReceiveMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MailboxTransportServer).ReceiveMessages(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.MailboxTransport/ReceiveMessages"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MailboxTransportServer).ReceiveMessages(ctx, req.(*ReceiveMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MailboxTransport_AcknowledgeMessages_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var in = new(AcknowledgeMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MailboxTransportServer).AcknowledgeMessages(ctx, in)
	}
	var info = &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hive.MailboxTransport/AcknowledgeMessages"}
	var handler = func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MailboxTransportServer).AcknowledgeMessages(ctx, req.(*AcknowledgeMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// MailboxTransportServiceDesc is the grpc.ServiceDesc for registering a
// MailboxTransportServer implementation with a grpc.Server.
var MailboxTransportServiceDesc = grpc.ServiceDesc{
	ServiceName: "hive.MailboxTransport",
	HandlerType: (*MailboxTransportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ReceiveMessages", Handler: _MailboxTransport_ReceiveMessages_Handler},
		{MethodName: "AcknowledgeMessages", Handler: _MailboxTransport_AcknowledgeMessages_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hive/mailbox.proto",
}

// RegisterMailboxTransportServer registers srv with s.
func RegisterMailboxTransportServer(s grpc.ServiceRegistrar, srv MailboxTransportServer) {
	s.RegisterService(&MailboxTransportServiceDesc, srv)
}
