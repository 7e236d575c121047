package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "busauth.v1.AuthService"

const (
	AuthenticateMethod    = "/" + ServiceName + "/Authenticate"
	ValidateSessionMethod = "/" + ServiceName + "/ValidateSession"
	LogoutMethod          = "/" + ServiceName + "/Logout"
	ChangePasswordMethod  = "/" + ServiceName + "/ChangePassword"
	RegisterMethod        = "/" + ServiceName + "/Register"
)

// AuthServiceServer is implemented by the gRPC transport.
type AuthServiceServer interface {
	Authenticate(context.Context, *AuthenticateRequest) (*AuthenticateResponse, error)
	ValidateSession(context.Context, *ValidateSessionRequest) (*ValidateSessionResponse, error)
	Logout(context.Context, *LogoutRequest) (*StatusResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*StatusResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// unary adapts a typed method to grpc.MethodHandler, running the server's
// interceptor chain the same way generated code does.
func unary[Req any, Resp any](fullMethod string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Authenticate", Handler: unary(AuthenticateMethod, AuthServiceServer.Authenticate)},
		{MethodName: "ValidateSession", Handler: unary(ValidateSessionMethod, AuthServiceServer.ValidateSession)},
		{MethodName: "Logout", Handler: unary(LogoutMethod, AuthServiceServer.Logout)},
		{MethodName: "ChangePassword", Handler: unary(ChangePasswordMethod, AuthServiceServer.ChangePassword)},
		{MethodName: "Register", Handler: unary(RegisterMethod, AuthServiceServer.Register)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "busauth/v1/auth.json",
}
