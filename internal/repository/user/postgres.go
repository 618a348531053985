package user

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"marketplace-api/internal/db"
	"marketplace-api/internal/domain"

	"github.com/jackc/pgx/v5"
)

type postgresRepo struct {
	db     db.DBTX
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(conn db.DBTX, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{db: conn, logger: logger}
}

const userColumns = `id::text, login, email, password_hash, role, created_at`

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (login, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns
	return r.scanUser(r.db.QueryRow(ctx, q, u.Login, strings.ToLower(u.Email), u.PasswordHash, string(u.Role)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !db.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	return r.scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *postgresRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(login) = lower($1)
LIMIT 1
`
	return r.scanUser(r.db.QueryRow(ctx, q, login))
}

func (r *postgresRepo) Update(ctx context.Context, u domain.User) (*domain.User, error) {
	if !db.ValidID(u.ID) {
		return nil, domain.ErrNotFound
	}
	const q = `
UPDATE users
SET login = $2, email = $3, password_hash = $4, role = $5
WHERE id = $1
RETURNING ` + userColumns
	return r.scanUser(r.db.QueryRow(ctx, q, u.ID, u.Login, strings.ToLower(u.Email), u.PasswordHash, string(u.Role)))
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Printf("user repo: scan error=%v", err)
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}
