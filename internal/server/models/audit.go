package models

import "time"

type AuditAction string

const (
	ActionLoginBlocked         AuditAction = "LOGIN_BLOCKED"
	ActionLoginFailed          AuditAction = "LOGIN_FAILED"
	ActionAccountLocked        AuditAction = "ACCOUNT_LOCKED"
	ActionPasswordMigrated     AuditAction = "PASSWORD_MIGRATED"
	ActionLoginSuccess         AuditAction = "LOGIN_SUCCESS"
	ActionLogout               AuditAction = "LOGOUT"
	ActionPasswordChanged      AuditAction = "PASSWORD_CHANGED"
	ActionPasswordChangeFailed AuditAction = "PASSWORD_CHANGE_FAILED"
	ActionRegister             AuditAction = "REGISTER"
)

// AuditEntry is a write-once record of a security-relevant event.
type AuditEntry struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Username  string      `json:"username"`
	Action    AuditAction `json:"action"`
	Success   bool        `json:"success"`
	Details   string      `json:"details,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
