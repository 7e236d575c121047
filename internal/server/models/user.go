package models

import (
	"strings"
	"time"
)

// UserStatus is the stored account status. The store historically holds the
// Portuguese labels, English ones are accepted on read.
type UserStatus string

const (
	StatusActive   UserStatus = "Ativo"
	StatusInactive UserStatus = "Inativo"
)

const (
	DefaultRole        = "Visualizador"
	DefaultPermissions = "dashboard:read"
)

type User struct {
	ID              string
	Username        string
	Email           string
	FullName        string
	PasswordHash    string
	Status          UserStatus
	FirstAccess     bool
	Role            string
	Permissions     string
	PersonalAccount bool
	RouteID         string
	LastLogin       *time.Time
	CreatedAt       time.Time
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	s := strings.TrimSpace(string(u.Status))
	return strings.EqualFold(s, string(StatusActive)) || strings.EqualFold(s, "Active")
}

// NormalizeUsername trims and lowercases a login name.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// UserView is the sanitized representation returned across the API.
// It never carries the password hash.
type UserView struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"displayName"`
	Role            string   `json:"role"`
	Permissions     []string `json:"permissions"`
	PersonalAccount bool     `json:"personalAccount"`
	RouteID         string   `json:"routeId,omitempty"`
	FirstAccess     bool     `json:"firstAccess"`
}

// View strips credential material from u.
func (u *User) View() *UserView {
	name := u.FullName
	if name == "" {
		name = u.Username
	}
	return &UserView{
		Username:        u.Username,
		Email:           u.Email,
		DisplayName:     name,
		Role:            u.Role,
		Permissions:     ParsePermissions(u.Permissions).List(),
		PersonalAccount: u.PersonalAccount,
		RouteID:         u.RouteID,
		FirstAccess:     u.FirstAccess,
	}
}

// Sources recorded with credential updates.
const (
	SourceLogin            = "login"
	SourceLoginMigration   = "login_migration"
	SourcePasswordChange   = "password_change"
	SourceFirstAccessSetup = "first_access"
)
