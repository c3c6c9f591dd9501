package store

import (
	"context"
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const userColumns = `id, name, username, COALESCE(email, ''), avatar_url, role, trust_score, auth_provider, created_at, updated_at`

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Username,
		&u.Email,
		&u.AvatarURL,
		&u.Role,
		&u.TrustScore,
		&u.AuthProvider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *Postgres) CreateUser(ctx context.Context, u model.User) error {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	stmt := `
		INSERT INTO users (id, name, username, email, avatar_url, role, trust_score, auth_provider)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
	`
	_, err := s.db.Pool().Exec(ctx, stmt, u.ID, u.Name, u.Username, u.Email, u.AvatarURL, u.Role, u.TrustScore, u.AuthProvider)
	return errors.Wrap(translate(err, "user "+u.ID.String()), "creating user")
}

func (s *Postgres) GetUser(ctx context.Context, id uuid.UUID) (model.User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.Pool().QueryRow(ctx, stmt, id))
	if err != nil {
		return model.User{}, translate(err, "user "+id.String())
	}
	return u, nil
}

func (s *Postgres) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	stmt := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	u, err := scanUser(s.db.Pool().QueryRow(ctx, stmt, username))
	if err != nil {
		return model.User{}, translate(err, "username "+username)
	}
	return u, nil
}

// UpsertGoogleUser matches on email. Existing users get their name and avatar
// refreshed; new users are created with u's username and fail with
// apperr.ErrConflict when it is taken.
func (s *Postgres) UpsertGoogleUser(ctx context.Context, u model.User) (model.User, error) {
	stmt := `
		INSERT INTO users (id, name, username, email, avatar_url, role, trust_score, auth_provider)
		VALUES ($1, $2, $3, $4, $5, 'user', $6, 'google')
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = NOW()
		RETURNING ` + userColumns
	out, err := scanUser(s.db.Pool().QueryRow(ctx, stmt, u.ID, u.Name, u.Username, u.Email, u.AvatarURL, model.DefaultTrustScore))
	if err != nil {
		return model.User{}, translate(err, "user "+u.Email)
	}
	return out, nil
}

func (s *Postgres) UpdateTrustScore(ctx context.Context, id uuid.UUID, score int) error {
	stmt := `UPDATE users SET trust_score = $2, updated_at = $3 WHERE id = $1`
	tag, err := s.db.Pool().Exec(ctx, stmt, id, score, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(translate(err, "user "+id.String()), "updating trust score")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(apperr.ErrNotFound, "user %s", id)
	}
	return nil
}
