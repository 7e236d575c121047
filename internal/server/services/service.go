// Package services contains server-side business logic. AuthService
// orchestrates login, session validation, logout, password change and
// registration over narrow collaborator interfaces.
//
// Public methods never return errors: every outcome, including internal
// failures, is reported through a result struct. Internal details are only
// logged.
package services

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/cryptox"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/lockout"
	"github.com/dmitrijs2005/busauth/internal/server/metrics"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/go-playground/validator/v10"
)

// CredentialStore reads and updates user accounts. FindByUsername takes a
// normalized username and returns common.ErrorNotFound for unknown users.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID, hash, source string) error
	UpdateLastLogin(ctx context.Context, userID, source string) error
	CreateUser(ctx context.Context, user *models.User) (string, error)
}

type LockoutTracker interface {
	CheckLock(ctx context.Context, username string) (lockout.Status, error)
	IncrementAttempts(ctx context.Context, username string) (int64, bool, error)
	ResetAttempts(ctx context.Context, username string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) (cryptox.Verification, error)
	VerifyDummy(password string)
}

// SessionManager issues and validates session tokens.
type SessionManager interface {
	CreateSession(ctx context.Context, user *models.User) (*models.IssuedSession, error)
	ValidateSession(ctx context.Context, token string) (*models.SessionInfo, error)
}

// SessionRevoker is the optional revocation capability of a SessionManager.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, sessionID, reason string) error
	RevokeAllSessions(ctx context.Context, username, reason string) (int64, error)
}

// AuditRecorder accepts entries without blocking and without failing.
type AuditRecorder interface {
	Record(ctx context.Context, e models.AuditEntry)
}

type AuthService struct {
	users    CredentialStore
	sessions SessionManager
	revoker  SessionRevoker
	lockout  LockoutTracker
	hasher   PasswordHasher
	audit    AuditRecorder
	metrics  metrics.Recorder
	logger   logging.Logger
	validate *validator.Validate
	now      func() time.Time
}

type Option func(*AuthService)

func WithHasher(h PasswordHasher) Option {
	return func(s *AuthService) { s.hasher = h }
}

func WithAudit(a AuditRecorder) Option {
	return func(s *AuthService) { s.audit = a }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *AuthService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService wires the service. users and tracker are required;
// sessions may be nil, in which case flows needing it report an internal
// error.
func NewAuthService(users CredentialStore, sessions SessionManager, tracker LockoutTracker, logger logging.Logger, opts ...Option) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: credential store is required")
	}
	if tracker == nil {
		return nil, errors.New("auth service: lockout tracker is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &AuthService{
		users:    users,
		sessions: sessions,
		lockout:  tracker,
		logger:   logger.With("component", "auth"),
		validate: newValidator(),
		now:      time.Now,
	}
	if r, ok := sessions.(SessionRevoker); ok {
		s.revoker = r
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hasher == nil {
		s.hasher = cryptox.NewHasher(cryptox.DefaultParams)
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.audit == nil {
		s.audit = &logAudit{logger: s.logger}
	}

	return s, nil
}

func (s *AuthService) record(ctx context.Context, username string, action models.AuditAction, success bool, details, sessionID string) {
	s.audit.Record(ctx, models.AuditEntry{
		Username:  username,
		Action:    action,
		Success:   success,
		Details:   details,
		SessionID: sessionID,
		Timestamp: s.now(),
	})
}

func (s *AuthService) recovered(ctx context.Context, op string, r any) {
	s.logger.Error(ctx, "panic recovered", "op", op, "panic", r, "stack", string(debug.Stack()))
}

// logAudit is used when no audit sink is wired.
type logAudit struct {
	logger logging.Logger
}

func (l *logAudit) Record(ctx context.Context, e models.AuditEntry) {
	if e.Type == "" {
		e.Type = common.AuditTypeAuth
	}
	l.logger.Info(ctx, "audit",
		"type", e.Type, "action", e.Action, "username", e.Username, "success", e.Success,
		"details", e.Details, "session_id", e.SessionID)
}
