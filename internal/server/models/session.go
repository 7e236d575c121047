package models

import "time"

// Session is the persisted record behind an issued session token.
type Session struct {
	ID           string
	UserID       string
	Username     string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason string
}

// IssuedSession is what CreateSession hands back to the caller.
type IssuedSession struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// Reasons a token fails validation.
const (
	SessionExpired   = "expired"
	SessionRevoked   = "revoked"
	SessionMalformed = "malformed"
	SessionUnknown   = "unknown"
)

// SessionInfo is the outcome of validating a token.
type SessionInfo struct {
	Valid     bool
	Username  string
	SessionID string
	ExpiresAt time.Time
	Reason    string
}
