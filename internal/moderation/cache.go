package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/bwise1/clarity/internal/flows"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// CachedClassifier remembers successful classifications of identical text so
// resubmissions do not cost another model call. Failures are never cached.
type CachedClassifier struct {
	next  Classifier
	cache *lru.Cache[string, flows.Classification]
}

func NewCachedClassifier(next Classifier, size int) (*CachedClassifier, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, flows.Classification](size)
	if err != nil {
		return nil, errors.Wrap(err, "creating classification cache")
	}
	return &CachedClassifier{next: next, cache: cache}, nil
}

func (c *CachedClassifier) ClassifyHarmfulContent(ctx context.Context, text string) (flows.Classification, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.next.ClassifyHarmfulContent(ctx, text)
	if err != nil {
		return flows.Classification{}, err
	}
	c.cache.Add(key, v)
	return v, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(sum[:])
}
