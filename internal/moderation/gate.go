// Package moderation decides whether user submitted content goes live, and
// runs the review queue for content that did not.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwise1/clarity/internal/apperr"
	"github.com/bwise1/clarity/internal/flows"
	"github.com/bwise1/clarity/internal/metrics"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonReviewUnavailable is recorded on drafts held because the classifier
// could not give an answer.
const ReasonReviewUnavailable = "automatic review unavailable"

type Classifier interface {
	ClassifyHarmfulContent(ctx context.Context, text string) (flows.Classification, error)
}

type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (flows.Sentiment, error)
}

type TrustAdjuster interface {
	Adjust(ctx context.Context, target uuid.UUID, currentScore int, postType model.PostType, sentiment float64) int
}

type Store interface {
	CreatePost(ctx context.Context, p model.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (model.Post, error)
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
	CreateFlag(ctx context.Context, f model.FlaggedContent) error
	GetFlag(ctx context.Context, id uuid.UUID) (model.FlaggedContent, error)
	ListFlags(ctx context.Context, p util.PageParams) ([]model.FlaggedContent, error)
	DeleteFlag(ctx context.Context, id uuid.UUID) error
	// PublishPending inserts post and deletes the pending entry flagID as one unit.
	PublishPending(ctx context.Context, flagID uuid.UUID, post model.Post) error
	DeletePostWithFlags(ctx context.Context, postID uuid.UUID) error
}

type Gate struct {
	store      Store
	classifier Classifier
	sentiment  SentimentAnalyzer
	trust      TrustAdjuster
	prescreen  *Prescreen
	logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewGate(store Store, classifier Classifier, sentiment SentimentAnalyzer, trust TrustAdjuster, prescreen *Prescreen, logger *zap.SugaredLogger) *Gate {
	return &Gate{
		store:      store,
		classifier: classifier,
		sentiment:  sentiment,
		trust:      trust,
		prescreen:  prescreen,
		logger:     logger,
		now:        time.Now,
	}
}

// Submit runs a draft through the prescreen and the harmful content
// classifier. Clean drafts are published; everything else, including drafts
// the classifier could not judge, lands in the review queue and the outcome
// carries the queue entry instead of a post.
func (g *Gate) Submit(ctx context.Context, draft model.PostDraft, author model.User) (model.SubmissionOutcome, error) {
	draft, err := cleanDraft(draft)
	if err != nil {
		return model.SubmissionOutcome{}, err
	}

	if reason, hit := g.prescreen.Check(draft.EntityName + "\n" + draft.Text); hit {
		return g.hold(ctx, draft, author.ID, reason, "prescreen")
	}

	verdict, err := g.classifier.ClassifyHarmfulContent(ctx, classificationInput(draft))
	if err != nil {
		g.logger.Warnw("classifier failed, holding draft", "author_id", author.ID, "error", err)
		return g.hold(ctx, draft, author.ID, ReasonReviewUnavailable, "held_unavailable")
	}
	if verdict.IsHarmful {
		return g.hold(ctx, draft, author.ID, verdict.Reason, "held")
	}

	post, target, err := g.prepare(ctx, draft, author.ID)
	if err != nil {
		return model.SubmissionOutcome{}, err
	}
	if err := g.store.CreatePost(ctx, post); err != nil {
		return model.SubmissionOutcome{}, apperr.Dependency("store", err)
	}
	metrics.ModerationDecisions.WithLabelValues("admitted").Inc()
	g.adjustTrust(ctx, target, post)
	return model.SubmissionOutcome{Post: &post}, nil
}

// Approve publishes a held draft without classifying it again.
func (g *Gate) Approve(ctx context.Context, flagID uuid.UUID, moderator model.User) (model.Post, error) {
	if !moderator.Role.CanModerate() {
		return model.Post{}, apperr.ErrForbidden
	}
	f, err := g.store.GetFlag(ctx, flagID)
	if err != nil {
		return model.Post{}, apperr.Dependency("store", err)
	}
	pending, ok := f.Subject.(model.PendingPost)
	if !ok {
		return model.Post{}, fmt.Errorf("flagged content %s is a live post, dismiss it instead: %w", flagID, apperr.ErrInvalidState)
	}

	post, target, err := g.prepare(ctx, pending.Draft, f.AuthorID)
	if err != nil {
		return model.Post{}, err
	}
	if err := g.store.PublishPending(ctx, flagID, post); err != nil {
		return model.Post{}, apperr.Dependency("store", err)
	}

	metrics.ModerationDecisions.WithLabelValues("approved").Inc()
	g.logger.Infow("held draft approved", "flag_id", flagID, "post_id", post.ID, "moderator", moderator.ID)
	g.adjustTrust(ctx, target, post)
	return post, nil
}

// Remove discards a held draft. Live posts are removed with RemovePost.
func (g *Gate) Remove(ctx context.Context, flagID uuid.UUID, moderator model.User) error {
	if err := g.deleteFlag(ctx, flagID, model.FlagPending, moderator); err != nil {
		return err
	}
	metrics.ModerationDecisions.WithLabelValues("removed").Inc()
	g.logger.Infow("held draft removed", "flag_id", flagID, "moderator", moderator.ID)
	return nil
}

// DismissFlag keeps a flagged live post and drops the flag.
func (g *Gate) DismissFlag(ctx context.Context, flagID uuid.UUID, moderator model.User) error {
	if err := g.deleteFlag(ctx, flagID, model.FlagExisting, moderator); err != nil {
		return err
	}
	metrics.ModerationDecisions.WithLabelValues("dismissed").Inc()
	g.logger.Infow("flag dismissed", "flag_id", flagID, "moderator", moderator.ID)
	return nil
}

// RemovePost deletes a live post and every flag raised against it.
func (g *Gate) RemovePost(ctx context.Context, postID uuid.UUID, moderator model.User) error {
	if !moderator.Role.CanModerate() {
		return apperr.ErrForbidden
	}
	if err := g.store.DeletePostWithFlags(ctx, postID); err != nil {
		return apperr.Dependency("store", err)
	}
	metrics.ModerationDecisions.WithLabelValues("post_removed").Inc()
	g.logger.Infow("post removed", "post_id", postID, "moderator", moderator.ID)
	return nil
}

// FlagPost queues a live post for moderator review.
func (g *Gate) FlagPost(ctx context.Context, postID uuid.UUID, reporter model.User, reason string) (model.FlaggedContent, error) {
	post, err := g.store.GetPost(ctx, postID)
	if err != nil {
		return model.FlaggedContent{}, apperr.Dependency("store", err)
	}
	f := model.FlaggedContent{
		ID:        util.GenerateUUID(),
		Subject:   model.ExistingPost{PostID: post.ID},
		AuthorID:  post.AuthorID,
		FlaggedBy: &reporter.ID,
		Reason:    util.SanitizeText(reason),
		FlaggedAt: g.now().UTC(),
	}
	if err := g.store.CreateFlag(ctx, f); err != nil {
		return model.FlaggedContent{}, apperr.Dependency("store", err)
	}
	metrics.ModerationDecisions.WithLabelValues("flagged").Inc()
	return f, nil
}

// Queue lists review entries oldest first.
func (g *Gate) Queue(ctx context.Context, moderator model.User, p util.PageParams) ([]model.FlaggedContent, error) {
	if !moderator.Role.CanModerate() {
		return nil, apperr.ErrForbidden
	}
	flags, err := g.store.ListFlags(ctx, p.Normalize())
	if err != nil {
		return nil, apperr.Dependency("store", err)
	}
	return flags, nil
}

func (g *Gate) hold(ctx context.Context, draft model.PostDraft, authorID uuid.UUID, reason, outcome string) (model.SubmissionOutcome, error) {
	f := model.FlaggedContent{
		ID:        util.GenerateUUID(),
		Subject:   model.PendingPost{Draft: draft},
		AuthorID:  authorID,
		Reason:    reason,
		FlaggedAt: g.now().UTC(),
	}
	if err := g.store.CreateFlag(ctx, f); err != nil {
		return model.SubmissionOutcome{}, apperr.Dependency("store", err)
	}
	metrics.ModerationDecisions.WithLabelValues(outcome).Inc()
	g.logger.Infow("draft held for review", "flag_id", f.ID, "author_id", authorID, "reason", reason)
	return model.SubmissionOutcome{Held: &model.HeldSubmission{FlaggedID: f.ID, Reason: reason}}, nil
}

// prepare builds the post for an admitted draft. Sentiment is required; the
// target user is looked up by handle and is nil when the entity is not a
// platform user or is the author.
func (g *Gate) prepare(ctx context.Context, draft model.PostDraft, authorID uuid.UUID) (model.Post, *model.User, error) {
	s, err := g.sentiment.AnalyzeSentiment(ctx, draft.Text)
	if err != nil {
		return model.Post{}, nil, apperr.Dependency("sentiment analyzer", err)
	}

	post := model.Post{
		ID:              util.GenerateUUID(),
		AuthorID:        authorID,
		Type:            draft.Type,
		EntityName:      draft.EntityName,
		Text:            draft.Text,
		ImageURL:        draft.ImageURL,
		SentimentScore:  flows.ClampSentiment(s.Score),
		BiasDetected:    s.BiasDetected,
		BiasExplanation: s.BiasExplanation,
		CreatedAt:       g.now().UTC(),
	}

	target := g.resolveTarget(ctx, draft.EntityName, authorID)
	if target != nil {
		post.TargetUserID = &target.ID
	}
	return post, target, nil
}

func (g *Gate) resolveTarget(ctx context.Context, entityName string, authorID uuid.UUID) *model.User {
	handle := util.NormalizeHandle(entityName)
	if handle == "" {
		return nil
	}
	u, err := g.store.FindUserByUsername(ctx, handle)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			g.logger.Warnw("target lookup failed", "entity", entityName, "error", err)
		}
		return nil
	}
	if u.ID == authorID {
		return nil
	}
	return &u
}

func (g *Gate) adjustTrust(ctx context.Context, target *model.User, post model.Post) {
	if target == nil || g.trust == nil {
		return
	}
	g.trust.Adjust(ctx, target.ID, target.TrustScore, post.Type, post.SentimentScore)
}

func (g *Gate) deleteFlag(ctx context.Context, flagID uuid.UUID, want model.FlagKind, moderator model.User) error {
	if !moderator.Role.CanModerate() {
		return apperr.ErrForbidden
	}
	f, err := g.store.GetFlag(ctx, flagID)
	if err != nil {
		return apperr.Dependency("store", err)
	}
	if f.Subject.Kind() != want {
		return fmt.Errorf("flagged content %s is %s, not %s: %w", flagID, f.Subject.Kind(), want, apperr.ErrInvalidState)
	}
	if err := g.store.DeleteFlag(ctx, flagID); err != nil {
		return apperr.Dependency("store", err)
	}
	return nil
}

func cleanDraft(d model.PostDraft) (model.PostDraft, error) {
	d.EntityName = util.SanitizeText(d.EntityName)
	d.Text = util.SanitizeText(d.Text)
	if !d.Type.Valid() {
		return d, fmt.Errorf("post type %q: %w", d.Type, apperr.ErrInvalidInput)
	}
	if d.EntityName == "" || d.Text == "" {
		return d, fmt.Errorf("entity name and text are required: %w", apperr.ErrInvalidInput)
	}
	return d, nil
}

func classificationInput(d model.PostDraft) string {
	return fmt.Sprintf("%s about %s:\n%s", d.Type, d.EntityName, d.Text)
}
