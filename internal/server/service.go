// Package server exposes the card pipeline and the document store over
// gRPC. Messages are google.protobuf.Struct values so the service needs no
// generated code; the field names are listed on each method.
package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "idcard.v1.IDCardService"

// IDCardServer is the server API for the IDCardService.
type IDCardServer interface {
	// Process: {image_base64, language?, mode?, techniques?, source?}
	Process(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// GetDocument: {id}
	GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ListDocuments: {from_date?, to_date?} as YYYY-MM-DD
	ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// ExportDocuments: {from_date?, to_date?}; response xlsx is base64
	ExportDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(IDCardServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IDCardServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IDCardServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes IDCardService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IDCardServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Process", IDCardServer.Process),
		unaryHandler("GetDocument", IDCardServer.GetDocument),
		unaryHandler("ListDocuments", IDCardServer.ListDocuments),
		unaryHandler("ExportDocuments", IDCardServer.ExportDocuments),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "idcard/v1/idcard.proto",
}

// RegisterIDCardServer registers srv on s.
func RegisterIDCardServer(s grpc.ServiceRegistrar, srv IDCardServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls IDCardService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Process(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Process", in, opts...)
}

func (c *Client) GetDocument(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetDocument", in, opts...)
}

func (c *Client) ListDocuments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListDocuments", in, opts...)
}

func (c *Client) ExportDocuments(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ExportDocuments", in, opts...)
}
