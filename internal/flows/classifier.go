package flows

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// Classification is the harmful content verdict for one piece of text.
type Classification struct {
	IsHarmful bool   `json:"isHarmful"`
	Reason    string `json:"reason"`
}

const classifySystem = `You review posts for a public accountability platform where people report
or endorse named individuals and businesses. Decide whether the text contains
harassment, hate speech, threats, doxxing or other personal attacks, explicit
content, or spam. Criticism of conduct, stated plainly, is not harmful.
Answer with JSON only.`

var classificationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isHarmful": {Type: genai.TypeBoolean},
		"reason": {
			Type:        genai.TypeString,
			Description: "short explanation shown to moderators when the text is harmful",
		},
	},
	Required: []string{"isHarmful", "reason"},
}

func (c *Client) ClassifyHarmfulContent(ctx context.Context, text string) (Classification, error) {
	var out Classification
	if err := c.generateJSON(ctx, "classify", classifySystem, "Text:\n"+text, classificationSchema, &out); err != nil {
		return Classification{}, err
	}
	out.Reason = strings.TrimSpace(out.Reason)
	if out.IsHarmful && out.Reason == "" {
		out.Reason = "flagged by automatic review"
	}
	return out, nil
}
