package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vaccine-reservation-api/internal/auth"
	"vaccine-reservation-api/internal/model"
)

func (l ledger) CreateUser(ctx context.Context, u *model.User) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO users (id, username, role, password_hash) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Username, u.Role, u.PasswordHash,
	)
	if uniqueViolation(err, "users_username_key") {
		return auth.ErrUsernameTaken
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (l ledger) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := l.db.QueryRow(ctx,
		`SELECT id, username, role, password_hash, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrUnknownUser
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return u, nil
}
