// Package sessions issues, validates and revokes login sessions.
//
// A session is a signed JWT whose jti names a persisted row. Validation
// checks the signature and expiry first, then the row, so revocation takes
// effect immediately.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/auth"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	sessionrepo "github.com/dmitrijs2005/busauth/internal/server/repositories/sessions"
	"github.com/google/uuid"
)

const DefaultTTL = 8 * time.Hour

type Manager struct {
	repo   sessionrepo.Repository
	secret []byte
	ttl    time.Duration
	logger logging.Logger
	now    func() time.Time
}

func NewManager(repo sessionrepo.Repository, secret []byte, ttl time.Duration, logger logging.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		repo:   repo,
		secret: secret,
		ttl:    ttl,
		logger: logger.With("component", "sessions"),
		now:    time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) CreateSession(ctx context.Context, user *models.User) (*models.IssuedSession, error) {
	now := m.now()
	s := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	token, err := auth.GenerateToken(s.ID, s.Username, user.Role, m.secret, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}

	if err := m.repo.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	m.logger.Debug(ctx, "session created", "username", s.Username, "session_id", s.ID)

	return &models.IssuedSession{Token: token, TokenID: s.ID, ExpiresAt: s.ExpiresAt}, nil
}

// ValidateSession reports invalid tokens through SessionInfo.Reason.
// The error is reserved for storage failures.
func (m *Manager) ValidateSession(ctx context.Context, token string) (*models.SessionInfo, error) {
	claims, err := auth.ParseToken(token, m.secret, m.now)
	if err != nil {
		reason := models.SessionMalformed
		if errors.Is(err, common.ErrTokenExpired) {
			reason = models.SessionExpired
		}
		return &models.SessionInfo{Reason: reason}, nil
	}

	s, err := m.repo.Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.SessionInfo{SessionID: claims.ID, Reason: models.SessionUnknown}, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	info := &models.SessionInfo{
		Username:  s.Username,
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt,
	}

	switch {
	case s.RevokedAt != nil:
		info.Reason = models.SessionRevoked
	case !m.now().Before(s.ExpiresAt):
		info.Reason = models.SessionExpired
	case s.Username != claims.Username:
		info.Reason = models.SessionMalformed
	default:
		info.Valid = true
	}

	return info, nil
}

// RevokeSession revokes one session. Revoking an unknown or already revoked
// session is not an error.
func (m *Manager) RevokeSession(ctx context.Context, sessionID, reason string) error {
	err := m.repo.Revoke(ctx, sessionID, reason, m.now())
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

func (m *Manager) RevokeAllSessions(ctx context.Context, username, reason string) (int64, error) {
	n, err := m.repo.RevokeAllForUser(ctx, username, reason, m.now())
	if err != nil {
		return 0, fmt.Errorf("revoking sessions: %w", err)
	}
	m.logger.Info(ctx, "sessions revoked", "username", username, "count", n, "reason", reason)
	return n, nil
}
