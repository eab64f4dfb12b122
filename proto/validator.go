package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ValidatorServiceName                   = "combat.v1.Validator"
	Validator_ProcessCombatAction_FullName = "/combat.v1.Validator/ProcessCombatAction"
	Validator_GetAuthoritative_FullName    = "/combat.v1.Validator/GetAuthoritativeState"
)

// ValidatorServer is the server API for the combat validator.
type ValidatorServer interface {
	ProcessCombatAction(context.Context, *CombatActionReq) (*CombatActionResp, error)
	GetAuthoritativeState(context.Context, *AuthoritativeStateReq) (*AuthoritativeStateResp, error)
}

// ValidatorClient is the client API for the combat validator.
type ValidatorClient interface {
	ProcessCombatAction(ctx context.Context, in *CombatActionReq, opts ...grpc.CallOption) (*CombatActionResp, error)
	GetAuthoritativeState(ctx context.Context, in *AuthoritativeStateReq, opts ...grpc.CallOption) (*AuthoritativeStateResp, error)
}

type validatorClient struct {
	cc grpc.ClientConnInterface
}

func NewValidatorClient(cc grpc.ClientConnInterface) ValidatorClient {
	return &validatorClient{cc}
}

func (c *validatorClient) ProcessCombatAction(ctx context.Context, in *CombatActionReq, opts ...grpc.CallOption) (*CombatActionResp, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Validator_ProcessCombatAction_FullName, in.Struct(), out, opts...); err != nil {
		return nil, err
	}
	return CombatActionRespFromStruct(out), nil
}

func (c *validatorClient) GetAuthoritativeState(ctx context.Context, in *AuthoritativeStateReq, opts ...grpc.CallOption) (*AuthoritativeStateResp, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, Validator_GetAuthoritative_FullName, in.Struct(), out, opts...); err != nil {
		return nil, err
	}
	return AuthoritativeStateRespFromStruct(out), nil
}

// UnimplementedValidatorServer can be embedded to have forward compatible implementations.
type UnimplementedValidatorServer struct{}

func (UnimplementedValidatorServer) ProcessCombatAction(context.Context, *CombatActionReq) (*CombatActionResp, error) {
	return nil, errUnimplemented("ProcessCombatAction")
}

func (UnimplementedValidatorServer) GetAuthoritativeState(context.Context, *AuthoritativeStateReq) (*AuthoritativeStateResp, error) {
	return nil, errUnimplemented("GetAuthoritativeState")
}

func RegisterValidatorServer(s grpc.ServiceRegistrar, srv ValidatorServer) {
	s.RegisterService(&Validator_ServiceDesc, srv)
}

func _Validator_ProcessCombatAction_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		msg, err := CombatActionReqFromStruct(req.(*structpb.Struct))
		if err != nil {
			return nil, errInvalid(err)
		}
		resp, err := srv.(ValidatorServer).ProcessCombatAction(ctx, msg)
		if err != nil {
			return nil, err
		}
		return resp.Struct(), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Validator_ProcessCombatAction_FullName}
	return interceptor(ctx, in, info, call)
}

func _Validator_GetAuthoritativeState_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		msg, err := AuthoritativeStateReqFromStruct(req.(*structpb.Struct))
		if err != nil {
			return nil, errInvalid(err)
		}
		resp, err := srv.(ValidatorServer).GetAuthoritativeState(ctx, msg)
		if err != nil {
			return nil, err
		}
		return resp.Struct(), nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Validator_GetAuthoritative_FullName}
	return interceptor(ctx, in, info, call)
}

// Validator_ServiceDesc is the grpc.ServiceDesc for the combat validator.
var Validator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ValidatorServiceName,
	HandlerType: (*ValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProcessCombatAction",
			Handler:    _Validator_ProcessCombatAction_Handler,
		},
		{
			MethodName: "GetAuthoritativeState",
			Handler:    _Validator_GetAuthoritativeState_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "combat/v1/validator.proto",
}
