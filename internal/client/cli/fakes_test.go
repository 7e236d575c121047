package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/client/config"
)

type fakeClient struct {
	token string

	loginCalls []string
	loginResps []*api.AuthenticateResponse
	loginErr   error

	whoResp *api.ValidateSessionResponse
	whoErr  error

	changeReq  *api.ChangePasswordRequest
	changeResp *api.StatusResponse
	changeErr  error

	registerReq  *api.RegisterRequest
	registerResp *api.RegisterResponse
	registerErr  error

	logoutCalled bool
	logoutResp   *api.StatusResponse
	logoutErr    error

	closed bool
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func (f *fakeClient) LoggedIn() bool { return f.token != "" }

func (f *fakeClient) Register(_ context.Context, req *api.RegisterRequest) (*api.RegisterResponse, error) {
	f.registerReq = req
	return f.registerResp, f.registerErr
}

func (f *fakeClient) Login(_ context.Context, username, password string) (*api.AuthenticateResponse, error) {
	f.loginCalls = append(f.loginCalls, username+":"+password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	resp := f.loginResps[0]
	if len(f.loginResps) > 1 {
		f.loginResps = f.loginResps[1:]
	}
	if resp.Success {
		f.token = resp.Token
	}
	return resp, nil
}

func (f *fakeClient) WhoAmI(context.Context) (*api.ValidateSessionResponse, error) {
	return f.whoResp, f.whoErr
}

func (f *fakeClient) ChangePassword(_ context.Context, req *api.ChangePasswordRequest) (*api.StatusResponse, error) {
	f.changeReq = req
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	if f.changeResp.Success {
		f.token = ""
	}
	return f.changeResp, nil
}

func (f *fakeClient) Logout(context.Context) (*api.StatusResponse, error) {
	f.logoutCalled = true
	if f.logoutErr != nil {
		return nil, f.logoutErr
	}
	f.token = ""
	return f.logoutResp, nil
}

func newTestApp(f *fakeClient) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{RequestTimeout: time.Second}
	return newApp(cfg, f, strings.NewReader(""), out), out
}

// stubInputs feeds text answers in order and hands out passwords in order.
func stubInputs(t *testing.T, texts []string, passwords ...string) {
	t.Helper()
	origST, origGP, origYN := getSimpleText, getPassword, getYesNo

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(texts) == 0 {
			return "", io.EOF
		}
		v := texts[0]
		texts = texts[1:]
		return v, nil
	}
	getYesNo = func(_ *bufio.Reader, _ string, _ io.Writer) (bool, error) {
		if len(texts) == 0 {
			return false, io.EOF
		}
		v := texts[0]
		texts = texts[1:]
		return v == "y", nil
	}
	getPassword = func(_ string, _ io.Writer) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		v := passwords[0]
		passwords = passwords[1:]
		return []byte(v), nil
	}

	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
		getYesNo = origYN
	})
}
