package moderation

import (
	"context"
	"testing"

	"github.com/bwise1/clarity/internal/flows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescreenMatchesWholeWords(t *testing.T) {
	p := NewPrescreen([]string{"Scam", "rip off", " ", "scam"})

	_, hit := p.Check("This is a scam.")
	assert.True(t, hit)
	_, hit = p.Check("What a RIP-OFF")
	assert.True(t, hit)
	_, hit = p.Check("scampi was great")
	assert.False(t, hit)
	_, hit = p.Check("")
	assert.False(t, hit)
}

func TestPrescreenAlwaysCatchesGTUBE(t *testing.T) {
	var p *Prescreen
	reason, hit := p.Check("x " + GTUBE + " y")
	assert.True(t, hit)
	assert.NotEmpty(t, reason)
}

func TestCachedClassifier(t *testing.T) {
	calls := 0
	fail := false
	next := classifierFunc(func(context.Context, string) (flows.Classification, error) {
		calls++
		if fail {
			return flows.Classification{}, assert.AnError
		}
		return flows.Classification{IsHarmful: true, Reason: "r"}, nil
	})
	c, err := NewCachedClassifier(next, 8)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.ClassifyHarmfulContent(ctx, "same  text")
	require.NoError(t, err)
	second, err := c.ClassifyHarmfulContent(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	fail = true
	_, err = c.ClassifyHarmfulContent(ctx, "other")
	assert.Error(t, err)
	_, err = c.ClassifyHarmfulContent(ctx, "other")
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}
