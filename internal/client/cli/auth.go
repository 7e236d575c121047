package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/shared"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getYesNo      = GetYesNo
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNotLoggedIn      = errors.New("not logged in")
)

// readNewPassword asks for a password twice and returns it when both
// entries match.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return nil, err
	}

	confirm, err := getPassword("Repeat "+prompt, a.out)
	if err != nil {
		shared.WipeByteArray(pw)
		return nil, err
	}
	defer shared.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		shared.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}

// Register prompts for the account details and asks the server to create
// the account. When an operator is logged in, the session is sent along so
// the server may accept a role and permissions.
func (a *App) Register(ctx context.Context) error {
	req := &api.RegisterRequest{}

	var err error
	if req.Username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
		return err
	}
	if req.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if req.FullName, err = getSimpleText(a.reader, "Enter full name (optional)", a.out); err != nil {
		return err
	}
	if req.PersonalAccount, err = getYesNo(a.reader, "Personal account?", a.out); err != nil {
		return err
	}

	if a.isLoggedIn() {
		if req.Role, err = getSimpleText(a.reader, "Enter role (empty for default)", a.out); err != nil {
			return err
		}
		if req.Permissions, err = getSimpleText(a.reader, "Enter permissions, comma separated (empty for default)", a.out); err != nil {
			return err
		}
		if req.FirstAccess, err = getYesNo(a.reader, "Require password change on first login?", a.out); err != nil {
			return err
		}
	}

	password, err := a.readNewPassword("Enter password")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)
	req.Password = string(password)

	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.Register(rctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	if resp.Success {
		fmt.Fprintf(a.out, "User id: %s\n", resp.UserID)
	}
	return nil
}

// Login prompts for credentials and authenticates. A rejected login is
// reported with the server's message, which includes the remaining lock
// time for a locked account. When the account still has its temporary
// password the user is asked to pick a new one straight away.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.Login(rctx, userName, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	if !resp.Success {
		a.user = nil
		return nil
	}

	a.user = resp.User
	if resp.ExpiresAt != nil {
		fmt.Fprintf(a.out, "Session valid until %s\n", resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}

	if resp.RequirePasswordChange {
		return a.firstAccess(ctx, userName, password)
	}
	return nil
}

// firstAccess replaces the temporary password and logs in again with the
// new one.
func (a *App) firstAccess(ctx context.Context, userName string, temporary []byte) error {
	newPassword, err := a.readNewPassword("Enter new password")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(newPassword)

	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.ChangePassword(rctx, &api.ChangePasswordRequest{
		Username:        userName,
		CurrentPassword: string(temporary),
		NewPassword:     string(newPassword),
		FirstAccess:     true,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	if !resp.Success {
		return nil
	}

	login, err := a.client.Login(rctx, userName, string(newPassword))
	if err != nil {
		a.user = nil
		return err
	}
	if !login.Success {
		a.user = nil
		fmt.Fprintln(a.out, login.Message)
		return nil
	}
	a.user = login.User
	return nil
}

// WhoAmI asks the server whether the current session is still valid and
// prints the account it belongs to.
func (a *App) WhoAmI(ctx context.Context) error {
	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.WhoAmI(rctx)
	if err != nil {
		return err
	}

	if !resp.Valid {
		a.user = nil
		fmt.Fprintln(a.out, resp.Message)
		return nil
	}

	a.user = resp.User
	printUser(a, resp.User)
	return nil
}

func printUser(a *App, u *api.User) {
	if u == nil {
		return
	}
	fmt.Fprintf(a.out, "Username:    %s\n", u.Username)
	fmt.Fprintf(a.out, "Name:        %s\n", u.DisplayName)
	fmt.Fprintf(a.out, "Email:       %s\n", u.Email)
	fmt.Fprintf(a.out, "Role:        %s\n", u.Role)
	fmt.Fprintf(a.out, "Permissions: %v\n", u.Permissions)
	if u.RouteID != "" {
		fmt.Fprintf(a.out, "Route:       %s\n", u.RouteID)
	}
}

// ChangePassword changes the logged-in user's password. The server revokes
// every session of the account afterwards, so the user has to log in again.
func (a *App) ChangePassword(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}

	current, err := getPassword("Enter current password", a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(current)

	newPassword, err := a.readNewPassword("Enter new password")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(newPassword)

	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.ChangePassword(rctx, &api.ChangePasswordRequest{
		Username:        a.user.Username,
		CurrentPassword: string(current),
		NewPassword:     string(newPassword),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	if resp.Success {
		a.user = nil
		fmt.Fprintln(a.out, "Please log in again")
	}
	return nil
}

// Logout ends the current session on the server.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return ErrNotLoggedIn
	}

	rctx, cancel := a.rpcContext(ctx)
	defer cancel()

	resp, err := a.client.Logout(rctx)
	a.user = nil
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	return nil
}
