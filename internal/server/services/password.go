package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/models"
)

const minPasswordLength = 8

// Policy violation messages, reported in this order.
const (
	MsgPasswordTooShort = "password must have at least 8 characters"
	MsgPasswordNoUpper  = "password must contain an uppercase letter"
	MsgPasswordNoLower  = "password must contain a lowercase letter"
	MsgPasswordNoDigit  = "password must contain a digit"
)

type PasswordCheck struct {
	Valid  bool
	Errors []string
}

// CheckPasswordStrength lists every policy rule the password breaks.
func CheckPasswordStrength(password string) PasswordCheck {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	var errs []string
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs = append(errs, MsgPasswordTooShort)
	}
	if !upper {
		errs = append(errs, MsgPasswordNoUpper)
	}
	if !lower {
		errs = append(errs, MsgPasswordNoLower)
	}
	if !digit {
		errs = append(errs, MsgPasswordNoDigit)
	}

	return PasswordCheck{Valid: len(errs) == 0, Errors: errs}
}

func IsStrongPassword(password string) bool {
	return CheckPasswordStrength(password).Valid
}

// ChangePassword replaces a user's password and revokes all their sessions.
// The current password may be skipped only when isFirstAccess is requested
// and the account is still flagged for first access.
func (s *AuthService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string, isFirstAccess bool) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered(ctx, "change password", r)
			s.metrics.RecordPasswordChange(false)
			res = failure(MsgSystemError)
		}
	}()

	out, err := s.changePassword(ctx, models.NormalizeUsername(username), currentPassword, newPassword, isFirstAccess)
	if err != nil {
		s.logger.Error(ctx, "password change failed with internal error", "username", models.NormalizeUsername(username), "error", err)
		s.metrics.RecordPasswordChange(false)
		return failure(MsgSystemError)
	}
	s.metrics.RecordPasswordChange(out.Success)
	return out
}

func (s *AuthService) changePassword(ctx context.Context, username, currentPassword, newPassword string, isFirstAccess bool) (*Result, error) {
	if username == "" || newPassword == "" {
		return failure(MsgMissingPasswordFields), nil
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return failure(MsgUserNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	firstAccess := isFirstAccess && user.FirstAccess
	if !firstAccess {
		v, err := s.hasher.Verify(currentPassword, user.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("verifying current password: %w", err)
		}
		if !v.Valid {
			s.record(ctx, username, models.ActionPasswordChangeFailed, false, "current password mismatch", "")
			return failure(MsgCurrentPasswordIncorrect), nil
		}
	}

	if check := CheckPasswordStrength(newPassword); !check.Valid {
		return failure(fmt.Sprintf(MsgWeakPassword, strings.Join(check.Errors, "; "))), nil
	}

	if s.revoker == nil {
		return nil, errors.New("session manager cannot revoke sessions")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	source := models.SourcePasswordChange
	if firstAccess {
		source = models.SourceFirstAccessSetup
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, source); err != nil {
		return nil, fmt.Errorf("updating password: %w", err)
	}

	n, err := s.revoker.RevokeAllSessions(ctx, username, "password changed")
	if err != nil {
		return nil, fmt.Errorf("revoking sessions: %w", err)
	}

	details := fmt.Sprintf("password changed, %d session(s) revoked", n)
	if firstAccess {
		details = "first access password set"
	}
	s.record(ctx, username, models.ActionPasswordChanged, true, details, "")
	s.logger.Info(ctx, "password changed", "username", username, "first_access", firstAccess, "revoked_sessions", n)

	return &Result{Success: true, Message: MsgPasswordChanged}, nil
}
