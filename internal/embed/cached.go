package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/docsift/internal/metrics"
)

// Cached memoizes vectors per text in an LRU, keyed by encoder version so a
// model change never serves stale vectors.
type Cached struct {
	inner Encoder
	cache *lru.Cache[string, []float32]
}

func NewCached(inner Encoder, size int) (*Cached, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Version() string { return c.inner.Version() }

// Encode serves hits from the cache and sends only the misses to the inner
// encoder, in one call.
func (c *Cached) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	version := c.inner.Version()

	for i, t := range texts {
		if v, ok := c.cache.Get(version + "\x00" + t); ok {
			out[i] = v
			metrics.RecordCache("memory", true)
			continue
		}
		metrics.RecordCache("memory", false)
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingUnavailable, len(missTexts), len(vecs))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(version+"\x00"+missTexts[j], vecs[j])
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }
