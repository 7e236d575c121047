package services

import (
	"time"

	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// User-facing messages. MsgInvalidCredentials is shared by the unknown-user
// and wrong-password branches and must stay identical for both.
const (
	MsgMissingCredentials       = "username and password are required"
	MsgInvalidCredentials       = "incorrect username or password"
	MsgAccountInactive          = "account inactive, contact the administrator"
	MsgAccountLocked            = "account temporarily locked, try again in %d minute(s)"
	MsgLoginSuccess             = "login successful"
	MsgPasswordChangeRequired   = "password change required on first access"
	MsgSessionError             = "error creating session"
	MsgSystemError              = "system error, try again"
	MsgTokenRequired            = "session token is required"
	MsgInvalidSession           = "invalid or expired session"
	MsgLogoutSuccess            = "logout successful"
	MsgMissingPasswordFields    = "username and new password are required"
	MsgUserNotFound             = "user not found"
	MsgCurrentPasswordIncorrect = "current password is incorrect"
	MsgWeakPassword             = "password does not meet the policy: %s"
	MsgPasswordChanged          = "password changed successfully"
	MsgMissingRegisterFields    = "username, password and email are required"
	MsgInvalidEmail             = "invalid email format"
	MsgUsernameTaken            = "username already exists"
	MsgRegisterSuccess          = "user registered successfully"
)

type Credentials struct {
	Username string
	Password string
}

// AuthResult is the outcome of AuthenticateUser. On success either Token is
// set or RequirePasswordChange is true.
type AuthResult struct {
	Success               bool
	Message               string
	User                  *models.UserView
	Token                 string
	ExpiresAt             time.Time
	RequirePasswordChange bool
	Locked                bool
	MinutesRemaining      int
}

type SessionValidation struct {
	Valid     bool
	User      *models.UserView
	SessionID string
	Message   string
}

// Result is the outcome of Logout and ChangePassword.
type Result struct {
	Success bool
	Message string
}

type RegisterInput struct {
	Username        string
	Password        string
	Email           string
	FullName        string
	Role            string
	Permissions     string
	PersonalAccount bool
	RouteID         string
	FirstAccess     bool
}

type RegisterResult struct {
	Success bool
	Message string
	UserID  string
}

func failure(msg string) *Result {
	return &Result{Message: msg}
}
