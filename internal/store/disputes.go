package store

import (
	"context"
	"encoding/json"

	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const disputeColumns = `id, title, description, post_id, parties, status, poll, verdict, comment_count, created_at`

func scanDispute(row rowScanner) (model.Dispute, error) {
	var d model.Dispute
	var parties, poll, verdict []byte
	err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.PostID,
		&parties,
		&d.Status,
		&poll,
		&verdict,
		&d.CommentCount,
		&d.CreatedAt,
	)
	if err != nil {
		return model.Dispute{}, err
	}
	if err := json.Unmarshal(parties, &d.Parties); err != nil {
		return model.Dispute{}, errors.Wrapf(err, "decoding parties of dispute %s", d.ID)
	}
	if err := json.Unmarshal(poll, &d.Poll); err != nil {
		return model.Dispute{}, errors.Wrapf(err, "decoding poll of dispute %s", d.ID)
	}
	if d.Poll.Voters == nil {
		d.Poll.Voters = []string{}
	}
	if len(verdict) > 0 && string(verdict) != "null" {
		d.Verdict = &model.Verdict{}
		if err := json.Unmarshal(verdict, d.Verdict); err != nil {
			return model.Dispute{}, errors.Wrapf(err, "decoding verdict of dispute %s", d.ID)
		}
	}
	return d, nil
}

// encodeDispute returns the JSONB documents for parties, poll and verdict.
// A nil verdict encodes as SQL NULL.
func encodeDispute(d model.Dispute) (parties, poll, verdict []byte, err error) {
	if parties, err = json.Marshal(d.Parties); err != nil {
		return nil, nil, nil, err
	}
	if poll, err = json.Marshal(d.Poll); err != nil {
		return nil, nil, nil, err
	}
	if d.Verdict != nil {
		if verdict, err = json.Marshal(d.Verdict); err != nil {
			return nil, nil, nil, err
		}
	}
	return parties, poll, verdict, nil
}

func (s *Postgres) CreateDispute(ctx context.Context, d model.Dispute) error {
	parties, poll, verdict, err := encodeDispute(d)
	if err != nil {
		return errors.Wrapf(err, "encoding dispute %s", d.ID)
	}
	stmt := `
		INSERT INTO disputes (id, title, description, post_id, parties, status, poll, verdict, comment_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.Pool().Exec(ctx, stmt,
		d.ID,
		d.Title,
		d.Description,
		d.PostID,
		parties,
		d.Status,
		poll,
		verdict,
		d.CommentCount,
		d.CreatedAt,
	)
	return errors.Wrap(translate(err, "dispute "+d.ID.String()), "creating dispute")
}

func (s *Postgres) GetDispute(ctx context.Context, id uuid.UUID) (model.Dispute, error) {
	stmt := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	d, err := scanDispute(s.db.Pool().QueryRow(ctx, stmt, id))
	if err != nil {
		return model.Dispute{}, translate(err, "dispute "+id.String())
	}
	return d, nil
}

func (s *Postgres) ListDisputes(ctx context.Context, status model.DisputeStatus, p util.PageParams) ([]model.Dispute, error) {
	p = p.Normalize()
	stmt := `
		SELECT ` + disputeColumns + ` FROM disputes
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.Pool().Query(ctx, stmt, string(status), p.PageSize, p.Offset())
	if err != nil {
		return nil, errors.Wrap(err, "listing disputes")
	}
	defer rows.Close()

	disputes := []model.Dispute{}
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning dispute")
		}
		disputes = append(disputes, d)
	}
	return disputes, rows.Err()
}

// UpdateDispute locks the dispute row for the duration of fn, so concurrent
// votes and verdicts on one dispute are applied one after another.
func (s *Postgres) UpdateDispute(ctx context.Context, id uuid.UUID, fn func(*model.Dispute) (bool, error)) (model.Dispute, error) {
	var out model.Dispute
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		stmt := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
		d, err := scanDispute(tx.QueryRow(ctx, stmt, id))
		if err != nil {
			return translate(err, "dispute "+id.String())
		}

		changed, err := fn(&d)
		if err != nil {
			return err
		}
		out = d
		if !changed {
			return nil
		}

		_, poll, verdict, err := encodeDispute(d)
		if err != nil {
			return errors.Wrapf(err, "encoding dispute %s", id)
		}
		update := `UPDATE disputes SET status = $2, poll = $3, verdict = $4 WHERE id = $1`
		if _, err := tx.Exec(ctx, update, id, d.Status, poll, verdict); err != nil {
			return translate(err, "dispute "+id.String())
		}
		return nil
	})
	if err != nil {
		return model.Dispute{}, err
	}
	return out, nil
}

func (s *Postgres) AddDisputeComment(ctx context.Context, c model.Comment) (model.Dispute, error) {
	var out model.Dispute
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		stmt := `INSERT INTO dispute_comments (id, dispute_id, user_id, comment, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, stmt, c.ID, c.ParentID, c.UserID, c.Comment, c.CreatedAt); err != nil {
			return err
		}
		update := `UPDATE disputes SET comment_count = comment_count + 1 WHERE id = $1 RETURNING ` + disputeColumns
		d, err := scanDispute(tx.QueryRow(ctx, update, c.ParentID))
		out = d
		return err
	})
	if err != nil {
		return model.Dispute{}, errors.Wrap(translate(err, "dispute "+c.ParentID.String()), "adding dispute comment")
	}
	return out, nil
}

func (s *Postgres) ListDisputeComments(ctx context.Context, disputeID uuid.UUID) ([]model.Comment, error) {
	stmt := `SELECT id, dispute_id, user_id, comment, created_at FROM dispute_comments WHERE dispute_id = $1 ORDER BY created_at`
	rows, err := s.db.Pool().Query(ctx, stmt, disputeID)
	if err != nil {
		return nil, errors.Wrap(err, "listing dispute comments")
	}
	return collectComments(rows)
}
