// Package rank scores sections against a persona/task query and orders them.
package rank

import (
	"context"
	"fmt"

	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Query is the fused persona/task query shared read-only by all scorers.
type Query struct {
	Persona string
	Task    string

	// Vector is the weighted concatenation [wp*persona ; wt*task],
	// normalized to unit length. Its length is twice the encoder dimension.
	Vector []float32

	// Tokens are the distinct content tokens of persona and task.
	Tokens map[string]struct{}
}

// BuildQuery embeds persona and task separately and fuses them. Blank input
// on either side fails with embed.ErrEmbeddingUnavailable.
func BuildQuery(ctx context.Context, enc embed.Encoder, tok *textnorm.Tokenizer, persona, task string, personaWeight, taskWeight float64) (*Query, error) {
	persona = textnorm.Normalize(persona)
	task = textnorm.Normalize(task)
	if persona == "" {
		return nil, fmt.Errorf("%w: persona is empty", embed.ErrEmbeddingUnavailable)
	}
	if task == "" {
		return nil, fmt.Errorf("%w: task is empty", embed.ErrEmbeddingUnavailable)
	}

	vecs, err := enc.Encode(ctx, []string{persona, task})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 2 || len(vecs[0]) == 0 || len(vecs[0]) != len(vecs[1]) {
		return nil, fmt.Errorf("%w: query vectors missing or mismatched", embed.ErrEmbeddingUnavailable)
	}

	p := embed.Normalize(vecs[0])
	t := embed.Normalize(vecs[1])
	fused := make([]float32, 0, len(p)+len(t))
	for _, x := range p {
		fused = append(fused, float32(personaWeight)*x)
	}
	for _, x := range t {
		fused = append(fused, float32(taskWeight)*x)
	}

	tokens := tok.TokenSet(persona)
	for w := range tok.TokenSet(task) {
		tokens[w] = struct{}{}
	}

	return &Query{
		Persona: persona,
		Task:    task,
		Vector:  embed.Normalize(fused),
		Tokens:  tokens,
	}, nil
}

// Dim returns the dimension of a single-text embedding this query accepts.
func (q *Query) Dim() int { return len(q.Vector) / 2 }

// Similarity is the cosine between the query and a text vector v lifted into
// the joint space as [v ; v]. It lies in [-1, 1].
func (q *Query) Similarity(v []float32) float64 {
	if len(v) != q.Dim() || len(v) == 0 {
		return 0
	}
	lifted := make([]float32, 0, 2*len(v))
	lifted = append(lifted, v...)
	lifted = append(lifted, v...)
	return embed.Cosine(q.Vector, lifted)
}

// LexicalOverlap is the fraction of distinct query tokens present in text.
func (q *Query) LexicalOverlap(tok *textnorm.Tokenizer, text string) float64 {
	if len(q.Tokens) == 0 {
		return 0
	}
	have := tok.TokenSet(text)
	hits := 0
	for w := range q.Tokens {
		if _, ok := have[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q.Tokens))
}
