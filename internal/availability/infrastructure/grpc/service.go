package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The Availability service is described by hand; requests and responses are
// google.protobuf.Struct values ({roomId, date} -> {available}) so the
// default proto codec carries them without generated stubs.
const (
	ServiceName     = "availability.Availability"
	checkRoomMethod = "/" + ServiceName + "/CheckRoom"
)

type AvailabilityServer interface {
	CheckRoom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckRoom", Handler: checkRoomHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "availability.proto",
}

func RegisterAvailabilityServer(s grpc.ServiceRegistrar, srv AvailabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func checkRoomHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).CheckRoom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: checkRoomMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AvailabilityServer).CheckRoom(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
