package flows

import (
	"context"
	"fmt"

	"github.com/bwise1/clarity/internal/model"
	"google.golang.org/genai"
)

// TrustSuggestion is the model's proposed new score. NewScore is returned
// as produced; callers clamp it.
type TrustSuggestion struct {
	NewScore    int    `json:"newScore"`
	Explanation string `json:"explanation"`
}

const trustSystem = `You maintain a 0-100 trust score for people discussed on an accountability
platform. Given the current score, whether a new post reports or endorses the
person, and the post's sentiment, propose the updated score. Reports with
negative sentiment lower the score, endorsements with positive sentiment raise
it, and single posts move it by small steps. Answer with JSON only.`

var (
	minTrust = float64(model.MinTrustScore)
	maxTrust = float64(model.MaxTrustScore)
)

var trustSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"newScore": {
			Type:    genai.TypeInteger,
			Minimum: &minTrust,
			Maximum: &maxTrust,
		},
		"explanation": {Type: genai.TypeString},
	},
	Required: []string{"newScore"},
}

func (c *Client) SuggestTrustScore(ctx context.Context, current int, postType model.PostType, sentiment float64) (TrustSuggestion, error) {
	prompt := fmt.Sprintf("Current score: %d\nPost type: %s\nSentiment: %.2f", current, postType, sentiment)
	var out TrustSuggestion
	if err := c.generateJSON(ctx, "trust_score", trustSystem, prompt, trustSchema, &out); err != nil {
		return TrustSuggestion{}, err
	}
	return out, nil
}
