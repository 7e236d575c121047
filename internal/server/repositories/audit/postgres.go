// Package audit stores authentication audit entries in PostgreSQL.
// The table is append-only; there is no update or delete.
package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/busauth/internal/dbx"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO audit_log (id, type, username, action, success, details, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Type, e.Username, string(e.Action), e.Success, e.Details, e.SessionID, e.Timestamp)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
