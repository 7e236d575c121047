package grpc

import (
	"context"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/dmitrijs2005/busauth/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	msgSessionRequired    = "session token required"
	msgForeignAccount     = "cannot change another user's password"
	msgFirstAccessDone    = "first access already completed, use the regular password change"
	msgRegistrationClosed = "registration requires an administrator session"
	msgPrivilegedRegister = "custom role, permissions or first access require users:manage"
)

func toAPIUser(u *models.UserView) *api.User {
	if u == nil {
		return nil
	}
	return &api.User{
		Username:        u.Username,
		Email:           u.Email,
		DisplayName:     u.DisplayName,
		Role:            u.Role,
		Permissions:     u.Permissions,
		PersonalAccount: u.PersonalAccount,
		RouteID:         u.RouteID,
		FirstAccess:     u.FirstAccess,
	}
}

func (s *GRPCServer) Authenticate(ctx context.Context, req *api.AuthenticateRequest) (*api.AuthenticateResponse, error) {
	r := s.auth.AuthenticateUser(ctx, services.Credentials{Username: req.Username, Password: req.Password})

	resp := &api.AuthenticateResponse{
		Success:               r.Success,
		Message:               r.Message,
		User:                  toAPIUser(r.User),
		Token:                 r.Token,
		RequirePasswordChange: r.RequirePasswordChange,
		Locked:                r.Locked,
		MinutesRemaining:      r.MinutesRemaining,
	}
	if !r.ExpiresAt.IsZero() {
		exp := r.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return resp, nil
}

func (s *GRPCServer) ValidateSession(ctx context.Context, req *api.ValidateSessionRequest) (*api.ValidateSessionResponse, error) {
	v := s.auth.ValidateSession(ctx, req.Token)
	return &api.ValidateSessionResponse{
		Valid:     v.Valid,
		User:      toAPIUser(v.User),
		SessionID: v.SessionID,
		Message:   v.Message,
	}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *api.LogoutRequest) (*api.StatusResponse, error) {
	r := s.auth.Logout(ctx, req.Token)
	return &api.StatusResponse{Success: r.Success, Message: r.Message}, nil
}

// ChangePassword requires the caller's own session. On first access the
// temporary password is proven through the login flow instead, so the
// attempt counts toward the lockout.
func (s *GRPCServer) ChangePassword(ctx context.Context, req *api.ChangePasswordRequest) (*api.StatusResponse, error) {
	username := models.NormalizeUsername(req.Username)

	if req.FirstAccess {
		login := s.auth.AuthenticateUser(ctx, services.Credentials{Username: username, Password: req.CurrentPassword})
		if !login.Success {
			return &api.StatusResponse{Message: login.Message}, nil
		}
		if !login.RequirePasswordChange {
			if login.Token != "" {
				s.auth.Logout(ctx, login.Token)
			}
			return &api.StatusResponse{Message: msgFirstAccessDone}, nil
		}
	} else {
		sess := sessionFromContext(ctx)
		if sess == nil || sess.User == nil {
			return nil, status.Error(codes.Unauthenticated, msgSessionRequired)
		}
		if sess.User.Username != username {
			s.logger.Warn(ctx, "password change for another account rejected", "caller", sess.User.Username, "target", username)
			return nil, status.Error(codes.PermissionDenied, msgForeignAccount)
		}
	}

	r := s.auth.ChangePassword(ctx, username, req.CurrentPassword, req.NewPassword, req.FirstAccess)
	return &api.StatusResponse{Success: r.Success, Message: r.Message}, nil
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	privileged := req.Role != "" || req.Permissions != "" || req.FirstAccess
	if privileged || !s.cfg.AllowSelfRegistration {
		sess := sessionFromContext(ctx)
		if sess == nil || sess.User == nil {
			msg := msgRegistrationClosed
			if privileged {
				msg = msgPrivilegedRegister
			}
			return nil, status.Error(codes.Unauthenticated, msg)
		}
		if !models.ExplicitPermissions(sess.User.Permissions...).Grants(models.PermissionUsersManage) {
			return nil, status.Error(codes.PermissionDenied, msgPrivilegedRegister)
		}
	}

	r := s.auth.Register(ctx, services.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		Email:           req.Email,
		FullName:        req.FullName,
		Role:            req.Role,
		Permissions:     req.Permissions,
		PersonalAccount: req.PersonalAccount,
		RouteID:         req.RouteID,
		FirstAccess:     req.FirstAccess,
	})
	return &api.RegisterResponse{Success: r.Success, Message: r.Message, UserID: r.UserID}, nil
}
