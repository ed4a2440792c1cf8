package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "podoagenda.v1.SchedulingService"

// SchedulingServiceServer is implemented by SchedulingServer.
type SchedulingServiceServer interface {
	ResolveAvailability(context.Context, *ResolveAvailabilityRequest) (*ResolveAvailabilityResponse, error)
	FindEligibleProfessionals(context.Context, *FindEligibleProfessionalsRequest) (*FindEligibleProfessionalsResponse, error)
	GetDayTimeline(context.Context, *GetDayTimelineRequest) (*GetDayTimelineResponse, error)
	ReassignAppointment(context.Context, *ReassignAppointmentRequest) (*AppointmentResponse, error)
	ShiftAppointment(context.Context, *ShiftAppointmentRequest) (*AppointmentResponse, error)
	CreateOverrides(context.Context, *CreateOverridesRequest) (*OverridesResponse, error)
	ListOverrides(context.Context, *ListOverridesRequest) (*OverridesResponse, error)
	DeleteOverrideRun(context.Context, *DeleteOverrideRunRequest) (*OverridesResponse, error)
	MaterializeRotation(context.Context, *MaterializeRotationRequest) (*OverridesResponse, error)
	ReplaceContract(context.Context, *ReplaceContractRequest) (*ContractResponse, error)
	GetContractStatus(context.Context, *ProfessionalRequest) (*ContractStatusResponse, error)
	ListContractHistory(context.Context, *ProfessionalRequest) (*ContractHistoryResponse, error)
	GetPayrollRoster(context.Context, *RosterRequest) (*RosterResponse, error)
	ListSchedulableRoster(context.Context, *RosterRequest) (*RosterResponse, error)
}

func unary[Req, Resp any](method string, call func(SchedulingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SchedulingServiceDesc describes podoagenda.v1.SchedulingService. Messages
// are carried by the JSON codec.
var SchedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SchedulingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ResolveAvailability", SchedulingServiceServer.ResolveAvailability),
		unary("FindEligibleProfessionals", SchedulingServiceServer.FindEligibleProfessionals),
		unary("GetDayTimeline", SchedulingServiceServer.GetDayTimeline),
		unary("ReassignAppointment", SchedulingServiceServer.ReassignAppointment),
		unary("ShiftAppointment", SchedulingServiceServer.ShiftAppointment),
		unary("CreateOverrides", SchedulingServiceServer.CreateOverrides),
		unary("ListOverrides", SchedulingServiceServer.ListOverrides),
		unary("DeleteOverrideRun", SchedulingServiceServer.DeleteOverrideRun),
		unary("MaterializeRotation", SchedulingServiceServer.MaterializeRotation),
		unary("ReplaceContract", SchedulingServiceServer.ReplaceContract),
		unary("GetContractStatus", SchedulingServiceServer.GetContractStatus),
		unary("ListContractHistory", SchedulingServiceServer.ListContractHistory),
		unary("GetPayrollRoster", SchedulingServiceServer.GetPayrollRoster),
		unary("ListSchedulableRoster", SchedulingServiceServer.ListSchedulableRoster),
	},
	Metadata: "podoagenda/v1/scheduling.proto",
}

func RegisterSchedulingServiceServer(s grpc.ServiceRegistrar, srv SchedulingServiceServer) {
	s.RegisterService(&SchedulingServiceDesc, srv)
}

// SchedulingClient calls the service over conn with the JSON codec.
type SchedulingClient struct {
	cc grpc.ClientConnInterface
}

func NewSchedulingClient(cc grpc.ClientConnInterface) *SchedulingClient {
	return &SchedulingClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *SchedulingClient, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SchedulingClient) GetDayTimeline(ctx context.Context, in *GetDayTimelineRequest, opts ...grpc.CallOption) (*GetDayTimelineResponse, error) {
	return invoke[GetDayTimelineResponse](ctx, c, "GetDayTimeline", in, opts...)
}

func (c *SchedulingClient) ReassignAppointment(ctx context.Context, in *ReassignAppointmentRequest, opts ...grpc.CallOption) (*AppointmentResponse, error) {
	return invoke[AppointmentResponse](ctx, c, "ReassignAppointment", in, opts...)
}

func (c *SchedulingClient) CreateOverrides(ctx context.Context, in *CreateOverridesRequest, opts ...grpc.CallOption) (*OverridesResponse, error) {
	return invoke[OverridesResponse](ctx, c, "CreateOverrides", in, opts...)
}

func (c *SchedulingClient) GetContractStatus(ctx context.Context, in *ProfessionalRequest, opts ...grpc.CallOption) (*ContractStatusResponse, error) {
	return invoke[ContractStatusResponse](ctx, c, "GetContractStatus", in, opts...)
}
