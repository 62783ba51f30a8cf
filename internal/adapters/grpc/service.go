package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "photoperiod.v1.PhotoperiodService"

// Method names
const (
	MethodGetEvaluation  = "GetEvaluation"
	MethodEvaluate       = "Evaluate"
	MethodValidate       = "Validate"
	MethodGetConfig      = "GetConfig"
	MethodUpdateConfig   = "UpdateConfig"
	MethodImportConfig   = "ImportConfig"
	MethodExportConfig   = "ExportConfig"
	MethodGetTransitions = "GetTransitions"
)

// PhotoperiodServer is the server API of PhotoperiodService.
// Every message is a google.protobuf.Struct.
type PhotoperiodServer interface {
	GetEvaluation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ImportConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransitions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(PhotoperiodServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PhotoperiodServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PhotoperiodServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes PhotoperiodService for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PhotoperiodServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodGetEvaluation, PhotoperiodServer.GetEvaluation),
		unaryMethod(MethodEvaluate, PhotoperiodServer.Evaluate),
		unaryMethod(MethodValidate, PhotoperiodServer.Validate),
		unaryMethod(MethodGetConfig, PhotoperiodServer.GetConfig),
		unaryMethod(MethodUpdateConfig, PhotoperiodServer.UpdateConfig),
		unaryMethod(MethodImportConfig, PhotoperiodServer.ImportConfig),
		unaryMethod(MethodExportConfig, PhotoperiodServer.ExportConfig),
		unaryMethod(MethodGetTransitions, PhotoperiodServer.GetTransitions),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "photoperiod/v1/photoperiod.proto",
}

// RegisterPhotoperiodServer registers srv with s
func RegisterPhotoperiodServer(s grpc.ServiceRegistrar, srv PhotoperiodServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls PhotoperiodService
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with a request built from fields
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
