package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// FilterServiceName is the fully qualified gRPC service name.
const FilterServiceName = "stixfilter.v1.FilterService"

// Full method names, as seen by interceptors.
const (
	MethodValidateFilterGroup = "/" + FilterServiceName + "/ValidateFilterGroup"
	MethodMatchStix           = "/" + FilterServiceName + "/MatchStix"
	MethodRegisterStream      = "/" + FilterServiceName + "/RegisterStream"
	MethodListStreams         = "/" + FilterServiceName + "/ListStreams"
	MethodDeleteStream        = "/" + FilterServiceName + "/DeleteStream"
)

// FilterServiceServer is the server API of the filter service. Messages are
// generic structs so the filter documents keep their JSON shape on the wire.
type FilterServiceServer interface {
	ValidateFilterGroup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MatchStix(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterStream(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListStreams(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteStream(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(FilterServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FilterServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(FilterServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FilterServiceDesc describes the filter service for grpc.Server.RegisterService.
var FilterServiceDesc = grpc.ServiceDesc{
	ServiceName: FilterServiceName,
	HandlerType: (*FilterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateFilterGroup",
			Handler:    unaryHandler(MethodValidateFilterGroup, FilterServiceServer.ValidateFilterGroup),
		},
		{
			MethodName: "MatchStix",
			Handler:    unaryHandler(MethodMatchStix, FilterServiceServer.MatchStix),
		},
		{
			MethodName: "RegisterStream",
			Handler:    unaryHandler(MethodRegisterStream, FilterServiceServer.RegisterStream),
		},
		{
			MethodName: "ListStreams",
			Handler:    unaryHandler(MethodListStreams, FilterServiceServer.ListStreams),
		},
		{
			MethodName: "DeleteStream",
			Handler:    unaryHandler(MethodDeleteStream, FilterServiceServer.DeleteStream),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "stixfilter/v1/filter_service.proto",
}

// RegisterFilterServiceServer registers srv on s.
func RegisterFilterServiceServer(s grpc.ServiceRegistrar, srv FilterServiceServer) {
	s.RegisterService(&FilterServiceDesc, srv)
}

// FilterServiceClient calls the filter service.
type FilterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFilterServiceClient creates a client on cc.
func NewFilterServiceClient(cc grpc.ClientConnInterface) *FilterServiceClient {
	return &FilterServiceClient{cc: cc}
}

func (c *FilterServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateFilterGroup calls FilterService.ValidateFilterGroup.
func (c *FilterServiceClient) ValidateFilterGroup(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodValidateFilterGroup, in, opts...)
}

// MatchStix calls FilterService.MatchStix.
func (c *FilterServiceClient) MatchStix(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodMatchStix, in, opts...)
}

// RegisterStream calls FilterService.RegisterStream.
func (c *FilterServiceClient) RegisterStream(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRegisterStream, in, opts...)
}

// ListStreams calls FilterService.ListStreams.
func (c *FilterServiceClient) ListStreams(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListStreams, in, opts...)
}

// DeleteStream calls FilterService.DeleteStream.
func (c *FilterServiceClient) DeleteStream(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteStream, in, opts...)
}
