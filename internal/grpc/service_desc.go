package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// DeliveryServiceName is the fully qualified gRPC service name.
const DeliveryServiceName = "delivery.v1.DeliveryService"

type rpcFunc func(s *DeliveryServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// rpcs lists every DeliveryService method. Requests and responses are google.protobuf.Struct.
var rpcs = []struct {
	name string
	fn   rpcFunc
}{
	{"CreateAssignment", (*DeliveryServer).CreateAssignment},
	{"PickupReadyOrder", (*DeliveryServer).PickupReadyOrder},
	{"AcceptAssignment", (*DeliveryServer).AcceptAssignment},
	{"MarkPickedUp", (*DeliveryServer).MarkPickedUp},
	{"MarkOutForDelivery", (*DeliveryServer).MarkOutForDelivery},
	{"MarkDelivered", (*DeliveryServer).MarkDelivered},
	{"CancelDelivery", (*DeliveryServer).CancelDelivery},
	{"UpdateItemStatus", (*DeliveryServer).UpdateItemStatus},
	{"AvailableOrders", (*DeliveryServer).AvailableOrders},
	{"MyOrders", (*DeliveryServer).MyOrders},
	{"GetDeliveryStatus", (*DeliveryServer).GetDeliveryStatus},
	{"UpdateAvailability", (*DeliveryServer).UpdateAvailability},
	{"UpdateLocation", (*DeliveryServer).UpdateLocation},
}

// DeliveryServiceDesc is the grpc.ServiceDesc for DeliveryService.
var DeliveryServiceDesc = grpc.ServiceDesc{
	ServiceName: DeliveryServiceName,
	HandlerType: (*any)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "delivery/v1/delivery.proto",
}

func methodDescs() []grpc.MethodDesc {
	out := make([]grpc.MethodDesc, 0, len(rpcs))
	for _, r := range rpcs {
		out = append(out, grpc.MethodDesc{MethodName: r.name, Handler: handler(r.name, r.fn)})
	}
	return out
}

func handler(name string, fn rpcFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + DeliveryServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		call := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(*DeliveryServer), ctx, req.(*structpb.Struct))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, call)
	}
}

// RegisterDeliveryServiceServer registers s on the gRPC server.
func RegisterDeliveryServiceServer(r grpc.ServiceRegistrar, s *DeliveryServer) {
	r.RegisterService(&DeliveryServiceDesc, s)
}

// DeliveryServiceClient calls DeliveryService methods by name.
type DeliveryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDeliveryServiceClient(cc grpc.ClientConnInterface) *DeliveryServiceClient {
	return &DeliveryServiceClient{cc: cc}
}

// Call invokes method with req and returns the response envelope.
func (c *DeliveryServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+DeliveryServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
