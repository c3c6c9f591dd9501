package store

import (
	"context"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const postColumns = `id, author_id, type, entity_name, target_user_id, text, image_url,
	sentiment_score, bias_detected, bias_explanation,
	upvotes_count, downvotes_count, comments_count, created_at`

func scanPost(row rowScanner) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Type,
		&p.EntityName,
		&p.TargetUserID,
		&p.Text,
		&p.ImageURL,
		&p.SentimentScore,
		&p.BiasDetected,
		&p.BiasExplanation,
		&p.UpvotesCount,
		&p.DownvotesCount,
		&p.CommentsCount,
		&p.CreatedAt,
	)
	return p, err
}

func collectPosts(rows pgx.Rows) ([]model.Post, error) {
	defer rows.Close()
	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning post")
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func insertPost(ctx context.Context, q querier, p model.Post) error {
	stmt := `
		INSERT INTO posts (id, author_id, type, entity_name, target_user_id, text, image_url,
			sentiment_score, bias_detected, bias_explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.Exec(ctx, stmt,
		p.ID,
		p.AuthorID,
		p.Type,
		p.EntityName,
		p.TargetUserID,
		p.Text,
		p.ImageURL,
		p.SentimentScore,
		p.BiasDetected,
		p.BiasExplanation,
		p.CreatedAt,
	)
	return translate(err, "post "+p.ID.String())
}

func (s *Postgres) CreatePost(ctx context.Context, p model.Post) error {
	return errors.Wrap(insertPost(ctx, s.db.Pool(), p), "creating post")
}

func (s *Postgres) GetPost(ctx context.Context, id uuid.UUID) (model.Post, error) {
	stmt := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	p, err := scanPost(s.db.Pool().QueryRow(ctx, stmt, id))
	if err != nil {
		return model.Post{}, translate(err, "post "+id.String())
	}
	return p, nil
}

func (s *Postgres) ListPosts(ctx context.Context, p util.PageParams) ([]model.Post, error) {
	p = p.Normalize()
	stmt := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := s.db.Pool().Query(ctx, stmt, p.PageSize, p.Offset())
	if err != nil {
		return nil, errors.Wrap(err, "listing posts")
	}
	return collectPosts(rows)
}

func (s *Postgres) ListPostsAboutUser(ctx context.Context, userID uuid.UUID, p util.PageParams) ([]model.Post, error) {
	p = p.Normalize()
	stmt := `SELECT ` + postColumns + ` FROM posts WHERE target_user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	rows, err := s.db.Pool().Query(ctx, stmt, userID, p.PageSize, p.Offset())
	if err != nil {
		return nil, errors.Wrapf(err, "listing posts about %s", userID)
	}
	return collectPosts(rows)
}

// VotePost records or changes userID's vote and moves the post counters in
// the same transaction.
func (s *Postgres) VotePost(ctx context.Context, postID, userID uuid.UUID, voteType string) (model.Post, error) {
	var out model.Post
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		// lock the post row so concurrent votes see each other's counters
		if _, err := tx.Exec(ctx, `SELECT 1 FROM posts WHERE id = $1 FOR UPDATE`, postID); err != nil {
			return err
		}

		var previous string
		err := tx.QueryRow(ctx, `SELECT vote_type FROM post_votes WHERE post_id = $1 AND user_id = $2`, postID, userID).Scan(&previous)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if previous != voteType {
			upsert := `
				INSERT INTO post_votes (post_id, user_id, vote_type) VALUES ($1, $2, $3)
				ON CONFLICT (post_id, user_id) DO UPDATE SET vote_type = EXCLUDED.vote_type, created_at = NOW()
			`
			if _, err := tx.Exec(ctx, upsert, postID, userID, voteType); err != nil {
				return err
			}
			counters := `
				UPDATE posts SET
					upvotes_count = upvotes_count + (CASE WHEN $2 = 'up' THEN 1 ELSE 0 END) - (CASE WHEN $3 = 'up' THEN 1 ELSE 0 END),
					downvotes_count = downvotes_count + (CASE WHEN $2 = 'down' THEN 1 ELSE 0 END) - (CASE WHEN $3 = 'down' THEN 1 ELSE 0 END)
				WHERE id = $1
			`
			if _, err := tx.Exec(ctx, counters, postID, voteType, previous); err != nil {
				return err
			}
		}

		p, err := scanPost(tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, postID))
		out = p
		return err
	})
	if err != nil {
		return model.Post{}, errors.Wrap(translate(err, "post "+postID.String()), "voting on post")
	}
	return out, nil
}

func (s *Postgres) AddPostComment(ctx context.Context, c model.Comment) (model.Post, error) {
	var out model.Post
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		stmt := `INSERT INTO post_comments (id, post_id, user_id, comment, created_at) VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, stmt, c.ID, c.ParentID, c.UserID, c.Comment, c.CreatedAt); err != nil {
			return err
		}
		update := `UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1 RETURNING ` + postColumns
		p, err := scanPost(tx.QueryRow(ctx, update, c.ParentID))
		out = p
		return err
	})
	if err != nil {
		return model.Post{}, errors.Wrap(translate(err, "post "+c.ParentID.String()), "adding comment")
	}
	return out, nil
}

func (s *Postgres) ListPostComments(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	stmt := `SELECT id, post_id, user_id, comment, created_at FROM post_comments WHERE post_id = $1 ORDER BY created_at`
	rows, err := s.db.Pool().Query(ctx, stmt, postID)
	if err != nil {
		return nil, errors.Wrap(err, "listing post comments")
	}
	return collectComments(rows)
}

// DeletePostWithFlags removes a live post together with every queue entry
// that points at it. Disputes about the post stay, keeping its id.
func (s *Postgres) DeletePostWithFlags(ctx context.Context, postID uuid.UUID) error {
	err := s.db.RunInTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM flagged_content WHERE post_id = $1`, postID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(apperr.ErrNotFound, "post %s", postID)
		}
		return nil
	})
	return errors.Wrap(err, "removing post")
}

func collectComments(rows pgx.Rows) ([]model.Comment, error) {
	defer rows.Close()
	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.ParentID, &c.UserID, &c.Comment, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning comment")
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
