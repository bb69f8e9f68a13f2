package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE users (
//	  id            uuid PRIMARY KEY,
//	  name          text NOT NULL,
//	  email         text NOT NULL UNIQUE,
//	  password_hash text NOT NULL,
//	  role          text NOT NULL DEFAULT 'developer',
//	  created_at    timestamptz NOT NULL
//	);
//
// The UNIQUE constraint on email is what enforces one-principal-per-email;
// Create maps that violation to ErrEmailTaken.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const pgUniqueViolation = "23505"

func (r *PostgresRepo) Create(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, name, email, password_hash, role, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, name, email, password_hash, role, created_at
FROM users
WHERE email = $1
`
	var u User
	if err := r.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}
