package rank

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Weights blend the four relevance factors. Semantic similarity should
// dominate; the others break near-ties.
type Weights struct {
	Semantic float64 `yaml:"semantic" validate:"gte=0"`
	Position float64 `yaml:"position" validate:"gte=0"`
	Density  float64 `yaml:"density" validate:"gte=0"`
	Lexical  float64 `yaml:"lexical" validate:"gte=0"`
}

func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Position: 0.1, Density: 0.1, Lexical: 0.1}
}

// Factors are the per-section inputs to the blend.
type Factors struct {
	Semantic float64 `json:"semantic_score"`
	Position float64 `json:"position_weight"`
	Density  float64 `json:"density_score"`
	Lexical  float64 `json:"lexical_score"`
}

// Blend returns the weighted sum of f.
func (w Weights) Blend(f Factors) float64 {
	return w.Semantic*f.Semantic + w.Position*f.Position + w.Density*f.Density + w.Lexical*f.Lexical
}

// SentenceBlend scores a sentence with the semantic and lexical weights only,
// renormalized so the result stays on the section scale.
func (w Weights) SentenceBlend(semantic, lexical float64) float64 {
	total := w.Semantic + w.Lexical
	if total == 0 {
		return 0
	}
	return (w.Semantic*semantic + w.Lexical*lexical) / total
}

// Params tunes scoring, ranking and refinement.
type Params struct {
	Weights          Weights `yaml:"weights"`
	PositionFloor    float64 `yaml:"position_floor" validate:"gte=0,lte=1"`
	DensityCapTokens int     `yaml:"density_cap_tokens" validate:"gte=0"`
	EmbedMaxTokens   int     `yaml:"embed_max_tokens" validate:"gte=0"`
	PersonaWeight    float64 `yaml:"persona_weight" validate:"gte=0"`
	TaskWeight       float64 `yaml:"task_weight" validate:"gte=0"`
	TopK             int     `yaml:"top_k" validate:"gte=0"` // 0 keeps every section
	RefinedSentences int     `yaml:"refined_sentences" validate:"gte=1"`
	MinRelevance     float64 `yaml:"min_relevance"`
	Concurrency      int     `yaml:"concurrency" validate:"gte=1"`
}

func DefaultParams() Params {
	return Params{
		Weights:          DefaultWeights(),
		PositionFloor:    0.5,
		DensityCapTokens: 200,
		EmbedMaxTokens:   256,
		PersonaWeight:    0.4,
		TaskWeight:       0.6,
		TopK:             10,
		RefinedSentences: 3,
		MinRelevance:     0,
		Concurrency:      8,
	}
}

// ScoredSection is a section with its relevance factors and, once ranked,
// its rank and refined text.
type ScoredSection struct {
	Section *doctree.Section
	Factors
	Score float64
	Rank  int

	Sentences   []ScoredSentence
	RefinedText string
}

// ScoredSentence is one sentence of a section with its blended score.
type ScoredSentence struct {
	Index    int
	Text     string
	Semantic float64
	Lexical  float64
	Score    float64
}

// Omission records a section that could not be scored.
type Omission struct {
	Section *doctree.Section
	Err     error
}

// Scorer computes relevance for sections against one query.
type Scorer struct {
	Encoder   embed.Encoder
	Tokenizer *textnorm.Tokenizer
	Params    Params
	Log       *slog.Logger
}

// Score scores every section concurrently. Sections are expected in batch
// order (document order, then ordinal), which drives the position factor.
// A section that cannot be embedded, or is still pending when ctx expires,
// is returned as an Omission instead.
func (s *Scorer) Score(ctx context.Context, q *Query, sections []doctree.Section) ([]ScoredSection, []Omission) {
	start := time.Now()
	results := make([]*ScoredSection, len(sections))
	errs := make([]error, len(sections))

	var g errgroup.Group
	g.SetLimit(max(1, s.Params.Concurrency))
	for i := range sections {
		sec := &sections[i]
		pos := s.positionWeight(i, len(sections))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			scored, err := s.scoreOne(ctx, q, sec, pos)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = scored
			return nil
		})
	}
	_ = g.Wait()

	var scored []ScoredSection
	var omitted []Omission
	for i := range sections {
		if errs[i] != nil {
			omitted = append(omitted, Omission{Section: &sections[i], Err: errs[i]})
			continue
		}
		scored = append(scored, *results[i])
	}

	s.logger().Info("sections scored",
		"scored", len(scored),
		"omitted", len(omitted),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return scored, omitted
}

func (s *Scorer) scoreOne(ctx context.Context, q *Query, sec *doctree.Section, pos float64) (*ScoredSection, error) {
	body := sec.BodyText()
	text := strings.TrimSpace(sec.Title() + " " + textnorm.TruncateTokens(body, s.Params.EmbedMaxTokens))
	vec, err := embed.EncodeOne(ctx, s.Encoder, text)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", sec.Title(), err)
	}

	f := Factors{
		Semantic: q.Similarity(vec),
		Position: pos,
		Density:  s.density(body),
		Lexical:  q.LexicalOverlap(s.Tokenizer, sec.Title()+" "+body),
	}
	return &ScoredSection{
		Section: sec,
		Factors: f,
		Score:   s.Params.Weights.Blend(f),
	}, nil
}

// positionWeight decays linearly from 1 at the first section of the batch
// to PositionFloor at the last.
func (s *Scorer) positionWeight(i, n int) float64 {
	if n <= 1 {
		return 1
	}
	return 1 - (1-s.Params.PositionFloor)*float64(i)/float64(n-1)
}

// density saturates at DensityCapTokens.
func (s *Scorer) density(body string) float64 {
	limit := s.Params.DensityCapTokens
	if limit <= 0 {
		return 1
	}
	return float64(min(textnorm.EstimateTokens(body), limit)) / float64(limit)
}

func (s *Scorer) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
