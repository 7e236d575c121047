package users

import (
	"context"

	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// Repository is the credential store. FindByUsername expects an already
// normalized username and returns common.ErrorNotFound for unknown users.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID, hash, source string) error
	UpdateLastLogin(ctx context.Context, userID, source string) error
	CreateUser(ctx context.Context, user *models.User) (string, error)
}
