package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/go-playground/validator/v10"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Email    string `validate:"required,emailshape"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return v
}

// Register creates an active account. Role and permissions fall back to
// the read-only dashboard profile.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (res *RegisterResult) {
	defer func() {
		if r := recover(); r != nil {
			s.recovered(ctx, "register", r)
			s.metrics.RecordRegistration(false)
			res = &RegisterResult{Message: MsgSystemError}
		}
	}()

	out, err := s.register(ctx, in)
	if err != nil {
		s.logger.Error(ctx, "registration failed with internal error", "username", models.NormalizeUsername(in.Username), "error", err)
		s.metrics.RecordRegistration(false)
		return &RegisterResult{Message: MsgSystemError}
	}
	s.metrics.RecordRegistration(out.Success)
	return out
}

func (s *AuthService) register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	req := registerRequest{
		Username: models.NormalizeUsername(in.Username),
		Password: in.Password,
		Email:    strings.TrimSpace(in.Email),
	}
	if msg := s.validationMessage(req); msg != "" {
		return &RegisterResult{Message: msg}, nil
	}

	if check := CheckPasswordStrength(req.Password); !check.Valid {
		return &RegisterResult{Message: fmt.Sprintf(MsgWeakPassword, strings.Join(check.Errors, "; "))}, nil
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = models.DefaultRole
	}
	perms := models.DefaultPermissions
	if strings.TrimSpace(in.Permissions) != "" {
		perms = models.ParsePermissions(in.Permissions).String()
	}

	user := &models.User{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        strings.TrimSpace(in.FullName),
		PasswordHash:    hash,
		Status:          models.StatusActive,
		FirstAccess:     in.FirstAccess,
		Role:            role,
		Permissions:     perms,
		PersonalAccount: in.PersonalAccount,
		RouteID:         strings.TrimSpace(in.RouteID),
	}

	id, err := s.users.CreateUser(ctx, user)
	if errors.Is(err, common.ErrorAlreadyExists) {
		return &RegisterResult{Message: MsgUsernameTaken}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.record(ctx, req.Username, models.ActionRegister, true, "user registered with role "+role, "")
	s.logger.Info(ctx, "user registered", "username", req.Username, "role", role)

	return &RegisterResult{Success: true, Message: MsgRegisterSuccess, UserID: id}, nil
}

// validationMessage maps validator failures to user messages. Missing
// fields win over a malformed email.
func (s *AuthService) validationMessage(req registerRequest) string {
	err := s.validate.Struct(req)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgMissingRegisterFields
	}

	msg := ""
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			return MsgMissingRegisterFields
		case "emailshape":
			msg = MsgInvalidEmail
		}
	}
	if msg == "" {
		msg = MsgMissingRegisterFields
	}
	return msg
}
