package trust

import (
	"context"
	"errors"
	"testing"

	"github.com/bwise1/clarity/internal/flows"
	"github.com/bwise1/clarity/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubScorer struct {
	score int
	err   error

	gotCurrent   int
	gotSentiment float64
}

func (s *stubScorer) SuggestTrustScore(_ context.Context, current int, _ model.PostType, sentiment float64) (flows.TrustSuggestion, error) {
	s.gotCurrent = current
	s.gotSentiment = sentiment
	return flows.TrustSuggestion{NewScore: s.score, Explanation: "stub"}, s.err
}

type recordingStore struct {
	writes map[uuid.UUID]int
	err    error
}

func (r *recordingStore) UpdateTrustScore(_ context.Context, id uuid.UUID, score int) error {
	if r.err != nil {
		return r.err
	}
	if r.writes == nil {
		r.writes = map[uuid.UUID]int{}
	}
	r.writes[id] = score
	return nil
}

func newTestAdjuster(scorer Scorer, store Store) (*Adjuster, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewAdjuster(scorer, store, zap.New(core).Sugar()), logs
}

func TestAdjustClampsAboveRange(t *testing.T) {
	target := uuid.New()
	store := &recordingStore{}
	a, _ := newTestAdjuster(&stubScorer{score: 140}, store)

	got := a.Adjust(context.Background(), target, 90, model.PostEndorsement, 0.9)

	assert.Equal(t, 100, got)
	assert.Equal(t, 100, store.writes[target])
}

func TestAdjustClampsBelowRange(t *testing.T) {
	target := uuid.New()
	store := &recordingStore{}
	a, _ := newTestAdjuster(&stubScorer{score: -20}, store)

	got := a.Adjust(context.Background(), target, 10, model.PostReport, -0.8)

	assert.Equal(t, 0, got)
	assert.Equal(t, 0, store.writes[target])
}

func TestAdjustSkipsWriteWhenUnchanged(t *testing.T) {
	store := &recordingStore{}
	a, _ := newTestAdjuster(&stubScorer{score: 50}, store)

	got := a.Adjust(context.Background(), uuid.New(), 50, model.PostReport, 0)

	assert.Equal(t, 50, got)
	assert.Empty(t, store.writes)
}

func TestAdjustClampsInputsBeforeScoring(t *testing.T) {
	scorer := &stubScorer{score: 100}
	a, _ := newTestAdjuster(scorer, &recordingStore{})

	a.Adjust(context.Background(), uuid.New(), 250, model.PostEndorsement, 7)

	assert.Equal(t, 100, scorer.gotCurrent)
	assert.Equal(t, 1.0, scorer.gotSentiment)
}

func TestAdjustSwallowsScorerFailure(t *testing.T) {
	store := &recordingStore{}
	a, logs := newTestAdjuster(&stubScorer{err: errors.New("model down")}, store)

	got := a.Adjust(context.Background(), uuid.New(), 61, model.PostReport, -0.5)

	assert.Equal(t, 61, got)
	assert.Empty(t, store.writes)
	assert.Equal(t, 1, logs.FilterMessage("trust scorer failed").Len())
}

func TestAdjustSwallowsStoreFailure(t *testing.T) {
	a, logs := newTestAdjuster(&stubScorer{score: 40}, &recordingStore{err: errors.New("connection reset")})

	got := a.Adjust(context.Background(), uuid.New(), 55, model.PostReport, -0.5)

	assert.Equal(t, 55, got)
	assert.Equal(t, 1, logs.FilterMessage("saving trust score failed").Len())
}

func TestAdjustRejectsUnknownPostType(t *testing.T) {
	scorer := &stubScorer{score: 10}
	store := &recordingStore{}
	a, _ := newTestAdjuster(scorer, store)

	got := a.Adjust(context.Background(), uuid.New(), 70, model.PostType("rumour"), 0)

	assert.Equal(t, 70, got)
	assert.Empty(t, store.writes)
	assert.Zero(t, scorer.gotCurrent)
}
