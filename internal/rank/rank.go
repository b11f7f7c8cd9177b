package rank

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docsift/internal/textnorm"
)

// Less is the ranking order: higher score first, then earlier document,
// then earlier section. No two distinct sections of a batch compare equal.
func Less(a, b *ScoredSection) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Section.DocOrder != b.Section.DocOrder {
		return a.Section.DocOrder < b.Section.DocOrder
	}
	return a.Section.Ordinal < b.Section.Ordinal
}

// Rank sorts scored sections, drops those under minRelevance, keeps the top
// topK (all when topK <= 0) and numbers them from 1.
func Rank(scored []ScoredSection, topK int, minRelevance float64) []ScoredSection {
	ranked := make([]ScoredSection, 0, len(scored))
	for _, s := range scored {
		if s.Score >= minRelevance {
			ranked = append(ranked, s)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return Less(&ranked[i], &ranked[j]) })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// RefineAll fills Sentences and RefinedText for each ranked section.
func (s *Scorer) RefineAll(ctx context.Context, q *Query, ranked []ScoredSection) {
	var g errgroup.Group
	g.SetLimit(max(1, s.Params.Concurrency))
	for i := range ranked {
		ss := &ranked[i]
		g.Go(func() error {
			s.Refine(ctx, q, ss)
			return nil
		})
	}
	_ = g.Wait()
}

// Refine scores the section's sentences and keeps the best
// Params.RefinedSentences of them, in original order. If the sentences
// cannot be embedded the semantic term is dropped and lexical overlap
// alone decides.
func (s *Scorer) Refine(ctx context.Context, q *Query, ss *ScoredSection) {
	sentences := textnorm.SplitSentences(ss.Section.BodyText())
	if len(sentences) == 0 {
		ss.Sentences = nil
		ss.RefinedText = ""
		return
	}

	scored := make([]ScoredSentence, len(sentences))
	var embedIdx []int
	var embedTexts []string
	for i, text := range sentences {
		scored[i] = ScoredSentence{Index: i, Text: text, Lexical: q.LexicalOverlap(s.Tokenizer, text)}
		if len(s.Tokenizer.Tokens(text)) > 0 {
			embedIdx = append(embedIdx, i)
			embedTexts = append(embedTexts, textnorm.TruncateTokens(text, s.Params.EmbedMaxTokens))
		}
	}

	semantic := len(embedTexts) > 0
	if semantic {
		vecs, err := s.Encoder.Encode(ctx, embedTexts)
		if err != nil || len(vecs) != len(embedTexts) {
			s.logger().Warn("sentence embedding failed, using lexical overlap",
				"section", ss.Section.Title(), "doc", ss.Section.DocName, "error", err)
			semantic = false
		} else {
			for j, i := range embedIdx {
				scored[i].Semantic = q.Similarity(vecs[j])
			}
		}
	}

	w := s.Params.Weights
	for i := range scored {
		if semantic {
			scored[i].Score = w.SentenceBlend(scored[i].Semantic, scored[i].Lexical)
		} else {
			scored[i].Score = scored[i].Lexical
		}
	}
	ss.Sentences = scored
	ss.RefinedText = strings.Join(selectSentences(scored, s.Params.RefinedSentences), " ")
}

// selectSentences picks the n best sentences and returns their text in
// document order.
func selectSentences(scored []ScoredSentence, n int) []string {
	if n <= 0 || n > len(scored) {
		n = len(scored)
	}
	byScore := make([]ScoredSentence, len(scored))
	copy(byScore, scored)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })

	picked := byScore[:n]
	sort.Slice(picked, func(i, j int) bool { return picked[i].Index < picked[j].Index })
	out := make([]string, len(picked))
	for i, p := range picked {
		out[i] = p.Text
	}
	return out
}
