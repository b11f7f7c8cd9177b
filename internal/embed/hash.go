package embed

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/dgallion1/docsift/internal/textnorm"
)

const DefaultDim = 384

// HashEncoder is an offline, deterministic encoder built on feature hashing
// of word unigrams, bigrams and character trigrams. It captures lexical
// similarity only, which is enough to run the pipeline without a model
// server and to make tests repeatable.
type HashEncoder struct {
	dim int
	tok *textnorm.Tokenizer
}

// NewHashEncoder returns an encoder producing unit vectors of length dim.
// A nil tokenizer uses the default non-Japanese tokenizer.
func NewHashEncoder(dim int, tok *textnorm.Tokenizer) *HashEncoder {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &HashEncoder{dim: dim, tok: tok}
}

func (h *HashEncoder) Version() string {
	return fmt.Sprintf("hash-%d", h.dim)
}

func (h *HashEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := h.encode(text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (h *HashEncoder) encode(text string) ([]float32, error) {
	tokens := h.tok.ContentTokens(text)
	if len(tokens) == 0 {
		tokens = h.tok.Tokens(text)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in input", ErrEmbeddingUnavailable)
	}

	v := make([]float32, h.dim)
	for i, tok := range tokens {
		h.add(v, "w:"+tok, 1)
		if i > 0 {
			h.add(v, "b:"+tokens[i-1]+" "+tok, 0.5)
		}
		rs := []rune("^" + tok + "$")
		for j := 0; j+3 <= len(rs); j++ {
			h.add(v, "c:"+string(rs[j:j+3]), 0.25)
		}
	}
	return Normalize(v), nil
}

// add hashes a feature to a bucket with a hash-derived sign, which keeps
// collisions from biasing similarity upward.
func (h *HashEncoder) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

var _ Encoder = (*HashEncoder)(nil)
