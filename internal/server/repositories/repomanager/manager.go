package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/busauth/internal/dbx"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/audit"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/properties"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/busauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX and migrates the schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Audit(db dbx.DBTX) *audit.PostgresRepository
	Properties(db dbx.DBTX) *properties.PostgresStore
}
