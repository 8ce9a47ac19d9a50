package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Control_ListSources_FullMethodName   = "/marketpulse.control.v1.Control/ListSources"
	Control_ForceRefresh_FullMethodName  = "/marketpulse.control.v1.Control/ForceRefresh"
	Control_UpdateSymbols_FullMethodName = "/marketpulse.control.v1.Control/UpdateSymbols"
)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type ControlClient interface {
	ListSources(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListSourcesResponse, error)
	ForceRefresh(ctx context.Context, in *ForceRefreshRequest, opts ...grpc.CallOption) (*SourceControlResponse, error)
	UpdateSymbols(ctx context.Context, in *UpdateSymbolsRequest, opts ...grpc.CallOption) (*UpdateSymbolsResponse, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc}
}

func (c *controlClient) ListSources(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListSourcesResponse, error) {
	out := newWire(listSourcesResponseDesc)
	if err := c.cc.Invoke(ctx, Control_ListSources_FullMethodName, in.toWire().Message, out.Message, opts...); err != nil {
		return nil, err
	}
	return listSourcesResponseFrom(out), nil
}

func (c *controlClient) ForceRefresh(ctx context.Context, in *ForceRefreshRequest, opts ...grpc.CallOption) (*SourceControlResponse, error) {
	out := newWire(sourceControlResponseDesc)
	if err := c.cc.Invoke(ctx, Control_ForceRefresh_FullMethodName, in.toWire().Message, out.Message, opts...); err != nil {
		return nil, err
	}
	return sourceControlResponseFrom(out), nil
}

func (c *controlClient) UpdateSymbols(ctx context.Context, in *UpdateSymbolsRequest, opts ...grpc.CallOption) (*UpdateSymbolsResponse, error) {
	out := newWire(updateSymbolsResponseDesc)
	if err := c.cc.Invoke(ctx, Control_UpdateSymbols_FullMethodName, in.toWire().Message, out.Message, opts...); err != nil {
		return nil, err
	}
	return updateSymbolsResponseFrom(out), nil
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type ControlServer interface {
	ListSources(context.Context, *Empty) (*ListSourcesResponse, error)
	ForceRefresh(context.Context, *ForceRefreshRequest) (*SourceControlResponse, error)
	UpdateSymbols(context.Context, *UpdateSymbolsRequest) (*UpdateSymbolsResponse, error)
}

// UnimplementedControlServer can be embedded to stay forward compatible.
type UnimplementedControlServer struct{}

func (UnimplementedControlServer) ListSources(context.Context, *Empty) (*ListSourcesResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSources not implemented")
}

func (UnimplementedControlServer) ForceRefresh(context.Context, *ForceRefreshRequest) (*SourceControlResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ForceRefresh not implemented")
}

func (UnimplementedControlServer) UpdateSymbols(context.Context, *UpdateSymbolsRequest) (*UpdateSymbolsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateSymbols not implemented")
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// Handlers decode into dynamic messages and hand the service plain structs.

func _Control_ListSources_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := newWire(emptyDesc)
	if err := dec(in.Message); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		resp, err := srv.(ControlServer).ListSources(ctx, &Empty{})
		if err != nil {
			return nil, err
		}
		return resp.toWire().Message, nil
	}
	if interceptor == nil {
		return handler(ctx, in.Message)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_ListSources_FullMethodName}
	return interceptor(ctx, in.Message, info, handler)
}

func _Control_ForceRefresh_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := newWire(forceRefreshRequestDesc)
	if err := dec(in.Message); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		resp, err := srv.(ControlServer).ForceRefresh(ctx, forceRefreshRequestFrom(asWire(req)))
		if err != nil {
			return nil, err
		}
		return resp.toWire().Message, nil
	}
	if interceptor == nil {
		return handler(ctx, in.Message)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_ForceRefresh_FullMethodName}
	return interceptor(ctx, in.Message, info, handler)
}

func _Control_UpdateSymbols_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := newWire(updateSymbolsRequestDesc)
	if err := dec(in.Message); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		resp, err := srv.(ControlServer).UpdateSymbols(ctx, updateSymbolsRequestFrom(asWire(req)))
		if err != nil {
			return nil, err
		}
		return resp.toWire().Message, nil
	}
	if interceptor == nil {
		return handler(ctx, in.Message)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Control_UpdateSymbols_FullMethodName}
	return interceptor(ctx, in.Message, info, handler)
}

var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "marketpulse.control.v1.Control",
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSources", Handler: _Control_ListSources_Handler},
		{MethodName: "ForceRefresh", Handler: _Control_ForceRefresh_Handler},
		{MethodName: "UpdateSymbols", Handler: _Control_UpdateSymbols_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}
