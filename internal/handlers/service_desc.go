package handlers

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccessServiceName is the fully qualified gRPC service name
const AccessServiceName = "propaccess.v1.AccessService"

// Full method names
const (
	MethodLogin                    = "/" + AccessServiceName + "/Login"
	MethodLogout                   = "/" + AccessServiceName + "/Logout"
	MethodSwitchUser               = "/" + AccessServiceName + "/SwitchUser"
	MethodGetCapabilities          = "/" + AccessServiceName + "/GetCapabilities"
	MethodListTasks                = "/" + AccessServiceName + "/ListTasks"
	MethodListPropertyGroups       = "/" + AccessServiceName + "/ListPropertyGroups"
	MethodListTeamMembers          = "/" + AccessServiceName + "/ListTeamMembers"
	MethodUpdateTaskStatus         = "/" + AccessServiceName + "/UpdateTaskStatus"
	MethodReviewMaintenanceRequest = "/" + AccessServiceName + "/ReviewMaintenanceRequest"
)

// AccessServiceServer is the server API for the access service.
// Every message is a google.protobuf.Struct so the service needs no generated code.
type AccessServiceServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCapabilities(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPropertyGroups(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTeamMembers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateTaskStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewMaintenanceRequest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AccessServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccessServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AccessServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccessServiceDesc is the grpc.ServiceDesc for the access service
var AccessServiceDesc = grpc.ServiceDesc{
	ServiceName: AccessServiceName,
	HandlerType: (*AccessServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, AccessServiceServer.Login)},
		{MethodName: "Logout", Handler: unaryHandler(MethodLogout, AccessServiceServer.Logout)},
		{MethodName: "SwitchUser", Handler: unaryHandler(MethodSwitchUser, AccessServiceServer.SwitchUser)},
		{MethodName: "GetCapabilities", Handler: unaryHandler(MethodGetCapabilities, AccessServiceServer.GetCapabilities)},
		{MethodName: "ListTasks", Handler: unaryHandler(MethodListTasks, AccessServiceServer.ListTasks)},
		{MethodName: "ListPropertyGroups", Handler: unaryHandler(MethodListPropertyGroups, AccessServiceServer.ListPropertyGroups)},
		{MethodName: "ListTeamMembers", Handler: unaryHandler(MethodListTeamMembers, AccessServiceServer.ListTeamMembers)},
		{MethodName: "UpdateTaskStatus", Handler: unaryHandler(MethodUpdateTaskStatus, AccessServiceServer.UpdateTaskStatus)},
		{MethodName: "ReviewMaintenanceRequest", Handler: unaryHandler(MethodReviewMaintenanceRequest, AccessServiceServer.ReviewMaintenanceRequest)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "propaccess/v1/access.proto",
}

// RegisterAccessServiceServer registers srv with s
func RegisterAccessServiceServer(s grpc.ServiceRegistrar, srv AccessServiceServer) {
	s.RegisterService(&AccessServiceDesc, srv)
}

// AccessServiceClient is a client for the access service
type AccessServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAccessServiceClient creates a client over cc
func NewAccessServiceClient(cc grpc.ClientConnInterface) *AccessServiceClient {
	return &AccessServiceClient{cc: cc}
}

// Call invokes fullMethod with in. A nil in sends an empty Struct.
func (c *AccessServiceClient) Call(ctx context.Context, fullMethod string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
