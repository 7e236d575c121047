// Package sessions declares the server-side repository contract for
// persisted login sessions and its PostgreSQL and in-memory implementations.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/busauth/internal/server/models"
)

// Repository stores session rows keyed by session id.
type Repository interface {
	// Create stores a new session.
	Create(ctx context.Context, s *models.Session) error

	// Find returns the session with the given id or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Session, error)

	// Revoke marks one session revoked. Revoking an already revoked or
	// unknown session returns common.ErrorNotFound.
	Revoke(ctx context.Context, id, reason string, at time.Time) error

	// RevokeAllForUser revokes every active session of username and
	// returns how many were revoked.
	RevokeAllForUser(ctx context.Context, username, reason string, at time.Time) (int64, error)
}
