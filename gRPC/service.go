package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service speaks protobuf well-known types only, so no generated code is
// needed on either side.
const ServiceName = "obstaclevis.AnnotationService"

const (
	parseObjectsMethod  = "/" + ServiceName + "/ParseObjects"
	classifyLabelMethod = "/" + ServiceName + "/ClassifyLabel"
	renderMethod        = "/" + ServiceName + "/Render"
	shutdownMethod      = "/" + ServiceName + "/Shutdown"
)

type AnnotationServiceServer interface {
	// ParseObjects takes {format, content} and returns {objects, accepted, filtered, skipped}.
	ParseObjects(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ClassifyLabel returns {category, name, label} for a free form label.
	ClassifyLabel(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Render takes {image, detections, groundTruth}: a base64 encoded image and
	// the two annotation files as text. It returns the annotated JPEG.
	Render(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
	Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

func RegisterAnnotationServiceServer(s grpc.ServiceRegistrar, srv AnnotationServiceServer) {
	s.RegisterService(&AnnotationService_ServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(AnnotationServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnnotationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnnotationServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AnnotationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnnotationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ParseObjects",
			Handler: unaryHandler(parseObjectsMethod, func(s AnnotationServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.ParseObjects(ctx, in)
			}),
		},
		{
			MethodName: "ClassifyLabel",
			Handler: unaryHandler(classifyLabelMethod, func(s AnnotationServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return s.ClassifyLabel(ctx, in)
			}),
		},
		{
			MethodName: "Render",
			Handler: unaryHandler(renderMethod, func(s AnnotationServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Render(ctx, in)
			}),
		},
		{
			MethodName: "Shutdown",
			Handler: unaryHandler(shutdownMethod, func(s AnnotationServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Shutdown(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "obstaclevis/annotation.proto",
}

type AnnotationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAnnotationServiceClient(cc grpc.ClientConnInterface) *AnnotationServiceClient {
	return &AnnotationServiceClient{cc: cc}
}

func (c *AnnotationServiceClient) ParseObjects(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, parseObjectsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnnotationServiceClient) ClassifyLabel(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, classifyLabelMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnnotationServiceClient) Render(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, renderMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AnnotationServiceClient) Shutdown(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, shutdownMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
