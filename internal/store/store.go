// Package store persists users, posts, disputes and the moderation queue in
// Postgres. Disputes keep their parties, poll and verdict as JSONB columns
// so one row holds the whole aggregate.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Postgres struct {
	db *db.DB
}

func New(database *db.DB) *Postgres {
	return &Postgres{db: database}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// translate maps driver errors onto the shared error values. what names the
// record for the message.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s (%s): %w", what, pgErr.ConstraintName, apperr.ErrConflict)
		case "23503":
			return fmt.Errorf("%s references a missing record (%s): %w", what, pgErr.ConstraintName, apperr.ErrNotFound)
		case "23514":
			return fmt.Errorf("%s: %s: %w", what, pgErr.Message, apperr.ErrInvalidState)
		}
	}
	return err
}
