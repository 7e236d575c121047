package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/services"
	"google.golang.org/grpc"
)

// AuthService is the business API served over gRPC.
type AuthService interface {
	AuthenticateUser(ctx context.Context, creds services.Credentials) *services.AuthResult
	ValidateSession(ctx context.Context, token string) *services.SessionValidation
	Logout(ctx context.Context, token string) *services.Result
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string, isFirstAccess bool) *services.Result
	Register(ctx context.Context, in services.RegisterInput) *services.RegisterResult
}

type Config struct {
	Address string
	// LoginRate is the sustained Authenticate rate per peer, in requests
	// per second. Zero disables limiting.
	LoginRate  float64
	LoginBurst int
	// AllowSelfRegistration lets anonymous callers register accounts with
	// the default role.
	AllowSelfRegistration bool
}

type GRPCServer struct {
	cfg     Config
	auth    AuthService
	logger  logging.Logger
	limiter *peerLimiter
}

func NewGRPCServer(cfg Config, auth AuthService, l logging.Logger) *GRPCServer {
	s := &GRPCServer{
		cfg:    cfg,
		auth:   auth,
		logger: l.With("module", "grpc_server"),
	}
	if cfg.LoginRate > 0 {
		s.limiter = newPeerLimiter(cfg.LoginRate, cfg.LoginBurst, 10*time.Minute)
	}
	return s
}

// newServer builds the grpc.Server with the interceptor chain. Split from
// Run so tests can serve on an in-memory listener.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.recoveryInterceptor,
		s.loggingInterceptor,
		s.rateLimitInterceptor,
		s.sessionInterceptor,
	))
	api.RegisterAuthServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *GRPCServer) serve(ctx context.Context, listen net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
