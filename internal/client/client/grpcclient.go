package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      api.AuthServiceClient

	mu    sync.RWMutex
	token string
}

func withToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return metadata.NewOutgoingContext(ctx, md)
}

// tokenInterceptor attaches the session token, if any. A rejected token is
// forgotten so the next call goes out anonymously.
func (s *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token := s.currentToken()
	if token == "" {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withToken(ctx, token), method, req, reply, cc, opts...)
	if status.Code(err) == codes.Unauthenticated {
		s.setToken("")
	}
	return err
}

func NewAuthClient(endpointURL string) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	conn, err := grpc.NewClient(s.endpointURL,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.tokenInterceptor))
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = api.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *GRPCClient) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *GRPCClient) LoggedIn() bool {
	return s.currentToken() != ""
}

func (s *GRPCClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

// Login authenticates and keeps the returned token for later calls. Any
// answer replaces the token held so far, so a rejected login leaves the
// client anonymous. The response is returned as-is so callers can render
// lockout and first-access details.
func (s *GRPCClient) Login(ctx context.Context, username, password string) (*api.AuthenticateResponse, error) {
	resp, err := s.client.Authenticate(ctx, &api.AuthenticateRequest{Username: username, Password: password})
	if err != nil {
		return nil, s.mapError(err)
	}

	token := ""
	if resp.Success {
		token = resp.Token
	}
	s.setToken(token)
	return resp, nil
}

func (s *GRPCClient) WhoAmI(ctx context.Context) (*api.ValidateSessionResponse, error) {
	token := s.currentToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.ValidateSession(ctx, &api.ValidateSessionRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	if !resp.Valid {
		s.setToken("")
	}
	return resp, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.StatusResponse, error) {
	resp, err := s.client.ChangePassword(ctx, req)
	if err != nil {
		return nil, s.mapError(err)
	}
	// every session of the account is revoked after a change
	if resp.Success {
		s.setToken("")
	}
	return resp, nil
}

func (s *GRPCClient) Logout(ctx context.Context) (*api.StatusResponse, error) {
	token := s.currentToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := s.client.Logout(ctx, &api.LogoutRequest{Token: token})
	if err != nil {
		return nil, s.mapError(err)
	}
	s.setToken("")
	return resp, nil
}

func (s *GRPCClient) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.ResourceExhausted:
		return ErrRateLimited
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
