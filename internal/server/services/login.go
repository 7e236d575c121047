package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/metrics"
	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// AuthenticateUser runs the full login flow. Unknown users and wrong
// passwords produce the same message; only the latter two count toward the
// lockout.
func (s *AuthService) AuthenticateUser(ctx context.Context, creds Credentials) (res *AuthResult) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.recovered(ctx, "login", r)
			s.metrics.RecordLogin(metrics.OutcomeError)
			res = &AuthResult{Message: MsgSystemError}
		}
		s.metrics.RecordLoginLatency(s.now().Sub(start))
	}()

	out, err := s.authenticate(ctx, creds)
	if err != nil {
		s.logger.Error(ctx, "login failed with internal error", "username", models.NormalizeUsername(creds.Username), "error", err)
		s.metrics.RecordLogin(metrics.OutcomeError)
		return &AuthResult{Message: MsgSystemError}
	}
	return out
}

func (s *AuthService) authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	username := models.NormalizeUsername(creds.Username)
	if username == "" || creds.Password == "" {
		return &AuthResult{Message: MsgMissingCredentials}, nil
	}

	st, err := s.lockout.CheckLock(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("checking lock: %w", err)
	}
	if st.Locked {
		s.record(ctx, username, models.ActionLoginBlocked, false,
			fmt.Sprintf("account locked, %d minute(s) remaining", st.MinutesRemaining), "")
		s.metrics.RecordLogin(metrics.OutcomeLocked)
		return &AuthResult{
			Message:          fmt.Sprintf(MsgAccountLocked, st.MinutesRemaining),
			Locked:           true,
			MinutesRemaining: st.MinutesRemaining,
		}, nil
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		s.hasher.VerifyDummy(creds.Password)
		return s.rejectCredentials(ctx, username, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !user.IsActive() {
		s.record(ctx, username, models.ActionLoginFailed, false, "account inactive", "")
		s.metrics.RecordLogin(metrics.OutcomeInactive)
		return &AuthResult{Message: MsgAccountInactive}, nil
	}

	v, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !v.Valid {
		return s.rejectCredentials(ctx, username, "wrong password")
	}

	if v.NeedsMigration {
		s.migratePassword(ctx, user, creds.Password)
	}

	if err := s.lockout.ResetAttempts(ctx, username); err != nil {
		return nil, fmt.Errorf("resetting attempts: %w", err)
	}

	if user.FirstAccess {
		s.record(ctx, username, models.ActionLoginSuccess, true, "first access, password change required", "")
		s.metrics.RecordLogin(metrics.OutcomeFirstAccess)
		return &AuthResult{
			Success:               true,
			Message:               MsgPasswordChangeRequired,
			User:                  user.View(),
			RequirePasswordChange: true,
		}, nil
	}

	if s.sessions == nil {
		s.logger.Error(ctx, "session manager is not configured", "username", username)
		s.metrics.RecordLogin(metrics.OutcomeSessionError)
		return &AuthResult{Message: MsgSessionError}, nil
	}

	issued, err := s.sessions.CreateSession(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "creating session", "username", username, "error", err)
		s.metrics.RecordLogin(metrics.OutcomeSessionError)
		return &AuthResult{Message: MsgSessionError}, nil
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, models.SourceLogin); err != nil {
		s.logger.Warn(ctx, "updating last login", "username", username, "error", err)
	}

	s.record(ctx, username, models.ActionLoginSuccess, true, "login successful", issued.TokenID)
	s.metrics.RecordLogin(metrics.OutcomeSuccess)
	s.logger.Info(ctx, "user logged in", "username", username, "session_id", issued.TokenID)

	return &AuthResult{
		Success:   true,
		Message:   MsgLoginSuccess,
		User:      user.View(),
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *AuthService) rejectCredentials(ctx context.Context, username, reason string) (*AuthResult, error) {
	n, locked, err := s.lockout.IncrementAttempts(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("incrementing attempts: %w", err)
	}

	s.record(ctx, username, models.ActionLoginFailed, false, fmt.Sprintf("%s (attempt %d)", reason, n), "")
	if locked {
		s.record(ctx, username, models.ActionAccountLocked, false, fmt.Sprintf("locked after %d failed attempts", n), "")
		s.metrics.RecordAccountLocked()
		s.logger.Warn(ctx, "account locked", "username", username, "attempts", n)
	}
	s.metrics.RecordLogin(metrics.OutcomeInvalid)

	return &AuthResult{Message: MsgInvalidCredentials}, nil
}

// migratePassword upgrades a legacy hash. Failures are logged and do not
// affect the login outcome since the password was already verified.
func (s *AuthService) migratePassword(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, hash, models.SourceLoginMigration)
	}
	if err != nil {
		s.logger.Warn(ctx, "legacy password migration failed", "username", user.Username, "error", err)
		s.record(ctx, user.Username, models.ActionPasswordMigrated, false, "migration to secure hash failed", "")
		return
	}

	user.PasswordHash = hash
	s.record(ctx, user.Username, models.ActionPasswordMigrated, true, "legacy hash migrated to secure format", "")
	s.metrics.RecordPasswordMigrated()
}
