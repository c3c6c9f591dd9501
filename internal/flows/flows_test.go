package flows

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/bwise1/clarity/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	reply  string
	err    error
	model  string
	config *genai.GenerateContentConfig
	calls  int
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func testClient(g *fakeGenerator) *Client {
	return newClient(g, Options{Model: "test-model", RequestsPerSecond: 100}, zap.NewNop().Sugar())
}

func TestClassifyHarmfulContent(t *testing.T) {
	g := &fakeGenerator{reply: `{"isHarmful": true, "reason": "targeted harassment"}`}
	c := testClient(g)

	got, err := c.ClassifyHarmfulContent(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, Classification{IsHarmful: true, Reason: "targeted harassment"}, got)
	assert.Equal(t, "test-model", g.model)
	require.NotNil(t, g.config)
	assert.Equal(t, "application/json", g.config.ResponseMIMEType)
	assert.Same(t, classificationSchema, g.config.ResponseSchema)
}

func TestClassifyHarmfulContentFillsMissingReason(t *testing.T) {
	c := testClient(&fakeGenerator{reply: `{"isHarmful": true, "reason": "  "}`})

	got, err := c.ClassifyHarmfulContent(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, got.IsHarmful)
	assert.NotEmpty(t, got.Reason)
}

func TestClassifyHarmfulContentErrors(t *testing.T) {
	for name, g := range map[string]*fakeGenerator{
		"transport": {err: errors.New("deadline exceeded")},
		"malformed": {reply: `not json`},
		"empty":     {reply: ``},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := testClient(g).ClassifyHarmfulContent(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestAnalyzeSentimentClampsScore(t *testing.T) {
	c := testClient(&fakeGenerator{reply: "```json\n{\"score\": -3.5, \"biasDetected\": false, \"biasExplanation\": \"ignored\"}\n```"})

	got, err := c.AnalyzeSentiment(context.Background(), "terrible service")
	require.NoError(t, err)
	assert.Equal(t, -1.0, got.Score)
	assert.False(t, got.BiasDetected)
	assert.Empty(t, got.BiasExplanation)
}

func TestClampSentiment(t *testing.T) {
	assert.Equal(t, 1.0, ClampSentiment(4))
	assert.Equal(t, -1.0, ClampSentiment(-1.2))
	assert.Equal(t, 0.25, ClampSentiment(0.25))
	assert.Equal(t, 0.0, ClampSentiment(math.NaN()))
}

func TestSuggestTrustScoreReturnsRawValue(t *testing.T) {
	c := testClient(&fakeGenerator{reply: `{"newScore": 140, "explanation": "glowing"}`})

	got, err := c.SuggestTrustScore(context.Background(), 90, model.PostEndorsement, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 140, got.NewScore)
}

func TestCancelledContextSkipsCall(t *testing.T) {
	g := &fakeGenerator{reply: `{"isHarmful": false, "reason": ""}`}
	c := newClient(g, Options{RequestsPerSecond: 1}, zap.NewNop().Sugar())
	// drain the burst so the next call has to wait
	for c.limiter.Allow() {
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ClassifyHarmfulContent(ctx, "x")
	assert.Error(t, err)
	assert.Zero(t, g.calls)
}

func TestOffline(t *testing.T) {
	var o Offline
	_, err := o.ClassifyHarmfulContent(context.Background(), "x")
	assert.ErrorIs(t, err, ErrOffline)

	s, err := o.AnalyzeSentiment(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, s.Score)

	ts, err := o.SuggestTrustScore(context.Background(), 42, model.PostReport, -1)
	require.NoError(t, err)
	assert.Equal(t, 42, ts.NewScore)
}
