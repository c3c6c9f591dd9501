// Package trust keeps the 0-100 trust score of users that posts are about.
package trust

import (
	"context"

	"github.com/bwise1/clarity/internal/flows"
	"github.com/bwise1/clarity/internal/metrics"
	"github.com/bwise1/clarity/internal/model"
	"github.com/bwise1/clarity/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Scorer interface {
	SuggestTrustScore(ctx context.Context, current int, postType model.PostType, sentiment float64) (flows.TrustSuggestion, error)
}

type Store interface {
	UpdateTrustScore(ctx context.Context, userID uuid.UUID, score int) error
}

type Adjuster struct {
	scorer Scorer
	store  Store
	logger *zap.SugaredLogger
}

func NewAdjuster(scorer Scorer, store Store, logger *zap.SugaredLogger) *Adjuster {
	return &Adjuster{scorer: scorer, store: store, logger: logger}
}

// Adjust asks the scorer for a new score for target, clamps it to the valid
// range and persists it when it differs from currentScore. It returns the
// score the user ends up with. Failures are logged and leave the score as it
// was; they never reach the caller.
func (a *Adjuster) Adjust(ctx context.Context, target uuid.UUID, currentScore int, postType model.PostType, sentiment float64) int {
	current := clampScore(currentScore)
	if !postType.Valid() {
		a.logger.Warnw("trust adjustment skipped: unknown post type", "user_id", target, "post_type", postType)
		metrics.TrustAdjustments.WithLabelValues("skipped").Inc()
		return current
	}

	suggestion, err := a.scorer.SuggestTrustScore(ctx, current, postType, flows.ClampSentiment(sentiment))
	if err != nil {
		a.logger.Warnw("trust scorer failed", "user_id", target, "error", err)
		metrics.TrustAdjustments.WithLabelValues("failed").Inc()
		return current
	}

	next := clampScore(suggestion.NewScore)
	if next == current {
		metrics.TrustAdjustments.WithLabelValues("unchanged").Inc()
		return current
	}

	if err := a.store.UpdateTrustScore(ctx, target, next); err != nil {
		a.logger.Errorw("saving trust score failed", "user_id", target, "score", next, "error", err)
		metrics.TrustAdjustments.WithLabelValues("failed").Inc()
		return current
	}

	a.logger.Infow("trust score updated",
		"user_id", target,
		"from", current,
		"to", next,
		"explanation", suggestion.Explanation,
	)
	metrics.TrustAdjustments.WithLabelValues("written").Inc()
	return next
}

func clampScore(v int) int {
	return util.ClampInt(v, model.MinTrustScore, model.MaxTrustScore)
}
