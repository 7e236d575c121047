package api

import "time"

// User is the sanitized account view returned to callers.
type User struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"displayName"`
	Role            string   `json:"role"`
	Permissions     []string `json:"permissions"`
	PersonalAccount bool     `json:"personalAccount"`
	RouteID         string   `json:"routeId,omitempty"`
	FirstAccess     bool     `json:"firstAccess"`
}

type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthenticateResponse struct {
	Success               bool       `json:"success"`
	Message               string     `json:"message"`
	User                  *User      `json:"user,omitempty"`
	Token                 string     `json:"token,omitempty"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
	RequirePasswordChange bool       `json:"requirePasswordChange,omitempty"`
	Locked                bool       `json:"locked,omitempty"`
	MinutesRemaining      int        `json:"minutesRemaining,omitempty"`
}

type ValidateSessionRequest struct {
	Token string `json:"token"`
}

type ValidateSessionResponse struct {
	Valid     bool   `json:"valid"`
	User      *User  `json:"user,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

// ChangePasswordRequest must be sent with the session token in the
// authorization metadata unless FirstAccess is set.
type ChangePasswordRequest struct {
	Username        string `json:"username"`
	CurrentPassword string `json:"currentPassword,omitempty"`
	NewPassword     string `json:"newPassword"`
	FirstAccess     bool   `json:"firstAccess,omitempty"`
}

// StatusResponse answers Logout and ChangePassword.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterRequest creates an account. Setting Role or Permissions requires
// an authorized session with the users:manage capability.
type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Email           string `json:"email"`
	FullName        string `json:"fullName,omitempty"`
	Role            string `json:"role,omitempty"`
	Permissions     string `json:"permissions,omitempty"`
	PersonalAccount bool   `json:"personalAccount,omitempty"`
	RouteID         string `json:"routeId,omitempty"`
	FirstAccess     bool   `json:"firstAccess,omitempty"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}
