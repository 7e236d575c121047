package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// ValidateSession checks a token and resolves the user behind it. Sessions
// of deleted or inactive users are reported as invalid.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (res *SessionValidation) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered(ctx, "validate session", r)
			res = &SessionValidation{Message: MsgSystemError}
		}
	}()

	if strings.TrimSpace(token) == "" {
		return &SessionValidation{Message: MsgTokenRequired}
	}
	if s.sessions == nil {
		s.logger.Error(ctx, "session manager is not configured")
		return &SessionValidation{Message: MsgSystemError}
	}

	info, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "validating session", "error", err)
		return &SessionValidation{Message: MsgSystemError}
	}
	if !info.Valid {
		s.logger.Debug(ctx, "session rejected", "session_id", info.SessionID, "reason", info.Reason)
		return &SessionValidation{SessionID: info.SessionID, Message: MsgInvalidSession}
	}

	user, err := s.users.FindByUsername(ctx, info.Username)
	if errors.Is(err, common.ErrorNotFound) {
		return &SessionValidation{SessionID: info.SessionID, Message: MsgInvalidSession}
	}
	if err != nil {
		s.logger.Error(ctx, "loading session user", "username", info.Username, "error", err)
		return &SessionValidation{Message: MsgSystemError}
	}
	if !user.IsActive() {
		return &SessionValidation{SessionID: info.SessionID, Message: MsgAccountInactive}
	}

	return &SessionValidation{Valid: true, User: user.View(), SessionID: info.SessionID}
}

// Logout revokes the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered(ctx, "logout", r)
			res = failure(MsgSystemError)
		}
	}()

	if strings.TrimSpace(token) == "" {
		return failure(MsgTokenRequired)
	}
	if s.sessions == nil {
		s.logger.Error(ctx, "session manager is not configured")
		return failure(MsgSystemError)
	}

	info, err := s.sessions.ValidateSession(ctx, token)
	if err != nil {
		s.logger.Error(ctx, "validating session for logout", "error", err)
		return failure(MsgSystemError)
	}
	if !info.Valid {
		return failure(MsgInvalidSession)
	}

	if s.revoker == nil {
		s.logger.Warn(ctx, "session manager cannot revoke, session stays valid until expiry", "session_id", info.SessionID)
	} else if err := s.revoker.RevokeSession(ctx, info.SessionID, "logout"); err != nil {
		s.logger.Error(ctx, "revoking session", "session_id", info.SessionID, "error", err)
		return failure(MsgSystemError)
	}

	s.record(ctx, info.Username, models.ActionLogout, true, "logout", info.SessionID)
	s.metrics.RecordLogout()
	s.logger.Info(ctx, "user logged out", "username", info.Username, "session_id", info.SessionID)

	return &Result{Success: true, Message: MsgLogoutSuccess}
}
