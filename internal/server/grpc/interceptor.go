package grpc

import (
	"context"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const sessionKey ctxKey = "session"

// sessionMethods may carry a session token.
var sessionMethods = map[string]bool{
	api.ChangePasswordMethod: true,
	api.RegisterMethod:       true,
}

func sessionFromContext(ctx context.Context) *services.SessionValidation {
	v, _ := ctx.Value(sessionKey).(*services.SessionValidation)
	return v
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	token := strings.TrimSpace(values[0])
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// sessionInterceptor validates the authorization token when one is sent to
// a session-aware method. Handlers decide whether a session is required.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !sessionMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := tokenFromMetadata(ctx)
	if token == "" {
		return handler(ctx, req)
	}

	v := s.auth.ValidateSession(ctx, token)
	if !v.Valid {
		return nil, status.Error(codes.Unauthenticated, v.Message)
	}

	return handler(context.WithValue(ctx, sessionKey, v), req)
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// checksPassword reports whether the call verifies a password and so falls
// under the login rate limit. A first-access ChangePassword logs in with the
// temporary password.
func checksPassword(method string, req any) bool {
	switch method {
	case api.AuthenticateMethod:
		return true
	case api.ChangePasswordMethod:
		r, ok := req.(*api.ChangePasswordRequest)
		return ok && r.FirstAccess
	default:
		return false
	}
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.limiter == nil || !checksPassword(info.FullMethod, req) {
		return handler(ctx, req)
	}

	key := peerKey(ctx)
	if !s.limiter.Allow(key) {
		s.logger.Warn(ctx, "rate limit exceeded", "peer", key, "method", info.FullMethod)
		return nil, status.Error(codes.ResourceExhausted, "too many login attempts, slow down")
	}
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc",
		"method", info.FullMethod,
		"peer", peerKey(ctx),
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
