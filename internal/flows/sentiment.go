package flows

import (
	"context"
	"math"
	"strings"

	"google.golang.org/genai"
)

type Sentiment struct {
	Score           float64 `json:"score"`
	BiasDetected    bool    `json:"biasDetected"`
	BiasExplanation string  `json:"biasExplanation,omitempty"`
}

const sentimentSystem = `Rate the sentiment of the post from -1 (very negative) to 1 (very positive)
and say whether the wording shows bias against the subject beyond the facts
it describes. Answer with JSON only.`

var (
	minSentiment = -1.0
	maxSentiment = 1.0
)

var sentimentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score": {
			Type:    genai.TypeNumber,
			Minimum: &minSentiment,
			Maximum: &maxSentiment,
		},
		"biasDetected":    {Type: genai.TypeBoolean},
		"biasExplanation": {Type: genai.TypeString},
	},
	Required: []string{"score", "biasDetected"},
}

func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	var out Sentiment
	if err := c.generateJSON(ctx, "sentiment", sentimentSystem, "Post:\n"+text, sentimentSchema, &out); err != nil {
		return Sentiment{}, err
	}
	out.Score = ClampSentiment(out.Score)
	out.BiasExplanation = strings.TrimSpace(out.BiasExplanation)
	if !out.BiasDetected {
		out.BiasExplanation = ""
	}
	return out, nil
}

// ClampSentiment forces a score into [-1, 1]. NaN counts as neutral.
func ClampSentiment(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(minSentiment, math.Min(maxSentiment, v))
}
