package client

import (
	"context"

	"github.com/dmitrijs2005/busauth/internal/api"
)

// Client is the contract the CLI depends on.
type Client interface {
	Close() error
	Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, username, password string) (*api.AuthenticateResponse, error)
	WhoAmI(ctx context.Context) (*api.ValidateSessionResponse, error)
	ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.StatusResponse, error)
	Logout(ctx context.Context) (*api.StatusResponse, error)
	LoggedIn() bool
}
