package grpc

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/dmitrijs2005/busauth/internal/server/services"
)

type changeCall struct {
	username, current, next string
	firstAccess             bool
}

type fakeAuth struct {
	mu sync.Mutex

	loginOut    *services.AuthResult
	loginCalls  []services.Credentials
	sessions    map[string]*services.SessionValidation
	logoutOut   *services.Result
	logoutCalls []string
	changeOut   *services.Result
	changeCalls []changeCall
	registerOut *services.RegisterResult
	registered  []services.RegisterInput
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		loginOut:    &services.AuthResult{Message: services.MsgInvalidCredentials},
		sessions:    map[string]*services.SessionValidation{},
		logoutOut:   &services.Result{Success: true, Message: services.MsgLogoutSuccess},
		changeOut:   &services.Result{Success: true, Message: services.MsgPasswordChanged},
		registerOut: &services.RegisterResult{Success: true, Message: services.MsgRegisterSuccess, UserID: "u-1"},
	}
}

func (f *fakeAuth) withSession(token, username string, perms ...string) *fakeAuth {
	f.sessions[token] = &services.SessionValidation{
		Valid:     true,
		SessionID: "sid-" + token,
		User:      &models.UserView{Username: username, Permissions: perms},
	}
	return f
}

func (f *fakeAuth) AuthenticateUser(_ context.Context, c services.Credentials) *services.AuthResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls = append(f.loginCalls, c)
	return f.loginOut
}

func (f *fakeAuth) ValidateSession(_ context.Context, token string) *services.SessionValidation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.sessions[token]; ok {
		return v
	}
	return &services.SessionValidation{Message: services.MsgInvalidSession}
}

func (f *fakeAuth) Logout(_ context.Context, token string) *services.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, token)
	return f.logoutOut
}

func (f *fakeAuth) ChangePassword(_ context.Context, username, current, next string, first bool) *services.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls = append(f.changeCalls, changeCall{username, current, next, first})
	return f.changeOut
}

func (f *fakeAuth) Register(_ context.Context, in services.RegisterInput) *services.RegisterResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, in)
	return f.registerOut
}

func newServer(auth AuthService, cfg Config) *GRPCServer {
	return NewGRPCServer(cfg, auth, logging.Nop{})
}
