package flows

import (
	"context"
	"errors"

	"github.com/bwise1/clarity/internal/model"
)

var ErrOffline = errors.New("generative model not configured")

// Offline stands in for Client when no API key is configured. Classification
// always fails, so every draft waits for a moderator. Sentiment is neutral and
// trust scores are left where they are.
type Offline struct{}

func (Offline) ClassifyHarmfulContent(context.Context, string) (Classification, error) {
	return Classification{}, ErrOffline
}

func (Offline) AnalyzeSentiment(context.Context, string) (Sentiment, error) {
	return Sentiment{}, nil
}

func (Offline) SuggestTrustScore(_ context.Context, current int, _ model.PostType, _ float64) (TrustSuggestion, error) {
	return TrustSuggestion{NewScore: current, Explanation: "no model configured"}, nil
}
