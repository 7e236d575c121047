package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/busauth/internal/common"
	"github.com/dmitrijs2005/busauth/internal/dbx"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, username, email, full_name, password_hash, status, first_access,
		        role, permissions, personal_account, route_id, last_login, created_at
		 FROM users
		 WHERE username = $1
		 `

	u := &models.User{}
	var status string
	var lastLogin sql.NullTime

	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &status, &u.FirstAccess,
		&u.Role, &u.Permissions, &u.PersonalAccount, &u.RouteID, &lastLogin, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Status = models.UserStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}

	return u, nil
}

// UpdatePassword stores a new hash. Any source other than a login-time
// migration also completes the first-access state.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, hash, source string) error {
	query :=
		`UPDATE users SET password_hash = $2, first_access = false, updated_at = now(), updated_by = $3
		 WHERE id = $1
		 `
	if source == models.SourceLoginMigration {
		query =
			`UPDATE users SET password_hash = $2, updated_at = now(), updated_by = $3
			 WHERE id = $1
			 `
	}

	return r.execOne(ctx, query, userID, hash, source)
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, userID, source string) error {
	query :=
		`UPDATE users SET last_login = now(), updated_by = $2
		 WHERE id = $1
		 `

	return r.execOne(ctx, query, userID, source)
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) (string, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, email, full_name, password_hash, status, first_access,
		                    role, permissions, personal_account, route_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id
		 `

	var id string
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Email, user.FullName, user.PasswordHash, string(user.Status),
		user.FirstAccess, user.Role, user.Permissions, user.PersonalAccount, user.RouteID).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", common.ErrorAlreadyExists
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
