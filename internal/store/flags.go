package store

import (
	"context"
	"encoding/json"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const flagColumns = `id, kind, draft, post_id, author_id, flagged_by, reason, flagged_at`

func scanFlag(row rowScanner) (model.FlaggedContent, error) {
	var (
		f      model.FlaggedContent
		kind   model.FlagKind
		draft  []byte
		postID *uuid.UUID
	)
	if err := row.Scan(&f.ID, &kind, &draft, &postID, &f.AuthorID, &f.FlaggedBy, &f.Reason, &f.FlaggedAt); err != nil {
		return model.FlaggedContent{}, err
	}

	var d *model.PostDraft
	if len(draft) > 0 {
		d = &model.PostDraft{}
		if err := json.Unmarshal(draft, d); err != nil {
			return model.FlaggedContent{}, errors.Wrapf(err, "decoding draft of flagged content %s", f.ID)
		}
	}
	subject, err := model.NewFlagSubject(kind, d, postID)
	if err != nil {
		return model.FlaggedContent{}, err
	}
	f.Subject = subject
	return f, nil
}

func insertFlag(ctx context.Context, q querier, f model.FlaggedContent) error {
	var (
		draft  []byte
		postID *uuid.UUID
		err    error
	)
	switch subject := f.Subject.(type) {
	case model.PendingPost:
		if draft, err = json.Marshal(subject.Draft); err != nil {
			return errors.Wrap(err, "encoding draft")
		}
	case model.ExistingPost:
		postID = &subject.PostID
	default:
		return errors.Errorf("flagged content %s has no subject", f.ID)
	}

	stmt := `
		INSERT INTO flagged_content (id, kind, draft, post_id, author_id, flagged_by, reason, flagged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = q.Exec(ctx, stmt, f.ID, f.Subject.Kind(), draft, postID, f.AuthorID, f.FlaggedBy, f.Reason, f.FlaggedAt)
	return translate(err, "flagged content "+f.ID.String())
}

func (s *Postgres) CreateFlag(ctx context.Context, f model.FlaggedContent) error {
	return errors.Wrap(insertFlag(ctx, s.db.Pool(), f), "queueing flagged content")
}

func (s *Postgres) GetFlag(ctx context.Context, id uuid.UUID) (model.FlaggedContent, error) {
	stmt := `SELECT ` + flagColumns + ` FROM flagged_content WHERE id = $1`
	f, err := scanFlag(s.db.Pool().QueryRow(ctx, stmt, id))
	if err != nil {
		return model.FlaggedContent{}, translate(err, "flagged content "+id.String())
	}
	return f, nil
}

func (s *Postgres) ListFlags(ctx context.Context, p util.PageParams) ([]model.FlaggedContent, error) {
	p = p.Normalize()
	stmt := `SELECT ` + flagColumns + ` FROM flagged_content ORDER BY flagged_at, id LIMIT $1 OFFSET $2`
	rows, err := s.db.Pool().Query(ctx, stmt, p.PageSize, p.Offset())
	if err != nil {
		return nil, errors.Wrap(err, "listing moderation queue")
	}
	defer rows.Close()

	flags := []model.FlaggedContent{}
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning flagged content")
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (s *Postgres) DeleteFlag(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM flagged_content WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting flagged content")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(apperr.ErrNotFound, "flagged content %s", id)
	}
	return nil
}

// PublishPending turns a held draft into a live post and drops its queue
// entry in one transaction.
func (s *Postgres) PublishPending(ctx context.Context, flagID uuid.UUID, post model.Post) error {
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		var kind model.FlagKind
		err := tx.QueryRow(ctx, `SELECT kind FROM flagged_content WHERE id = $1 FOR UPDATE`, flagID).Scan(&kind)
		if err != nil {
			return translate(err, "flagged content "+flagID.String())
		}
		if kind != model.FlagPending {
			return errors.Wrapf(apperr.ErrInvalidState, "flagged content %s is not a pending draft", flagID)
		}
		if err := insertPost(ctx, tx, post); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM flagged_content WHERE id = $1`, flagID)
		return err
	})
	return errors.Wrap(err, "publishing held draft")
}
