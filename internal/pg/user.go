package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"skytrack/internal/identity"
	"skytrack/internal/model"
)

// The methods below make Store a local.Accounts backend.

func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, photo_url, role) VALUES ($1,$2,$3,$4,$5,$6)`,
		a.UID, a.Email, a.PasswordHash, a.Name, a.PhotoURL, string(a.Role),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return identity.ErrEmailTaken
	}
	return err
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.account(ctx, `WHERE email = $1`, email)
}

func (s *Store) AccountByID(ctx context.Context, uid string) (*model.Account, error) {
	return s.account(ctx, `WHERE id = $1`, uid)
}

func (s *Store) account(ctx context.Context, where string, arg string) (*model.Account, error) {
	a := &model.Account{}
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, photo_url, role, created_at, updated_at
		 FROM users `+where, arg,
	).Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Name, &a.PhotoURL, &role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, a *model.Account) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name=$1, photo_url=$2, role=$3, updated_at=NOW() WHERE id=$4`,
		a.Name, a.PhotoURL, string(a.Role), a.UID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrNotFound
	}
	return nil
}
