package rank

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/embed"
)

// axisEncoder maps known texts to fixed vectors and everything else through
// the hash encoder. Texts containing "CORRUPT" fail.
type axisEncoder struct {
	fixed map[string][]float32
	hash  *embed.HashEncoder
}

func (a *axisEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "CORRUPT") {
			return nil, fmt.Errorf("%w: corrupt input", embed.ErrEmbeddingUnavailable)
		}
		if v, ok := a.fixed[t]; ok {
			out[i] = v
			continue
		}
		v, err := embed.EncodeOne(ctx, a.hash, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (a *axisEncoder) Version() string { return "axis" }

func newScorer(enc embed.Encoder) *Scorer {
	return &Scorer{Encoder: enc, Params: DefaultParams()}
}

func TestBuildQuery_EmptyInputUnavailable(t *testing.T) {
	enc := embed.NewHashEncoder(32, nil)
	_, err := BuildQuery(context.Background(), enc, nil, "   ", "review literature", 0.4, 0.6)
	assert.ErrorIs(t, err, embed.ErrEmbeddingUnavailable)

	_, err = BuildQuery(context.Background(), enc, nil, "researcher", "", 0.4, 0.6)
	assert.ErrorIs(t, err, embed.ErrEmbeddingUnavailable)
}

func TestBuildQuery_TaskDominates(t *testing.T) {
	enc := &axisEncoder{fixed: map[string][]float32{
		"persona": {1, 0},
		"task":    {0, 1},
	}}
	q, err := BuildQuery(context.Background(), enc, nil, "persona", "task", 0.4, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Dim())

	taskLike := q.Similarity([]float32{0, 1})
	personaLike := q.Similarity([]float32{1, 0})
	assert.Greater(t, taskLike, personaLike)
	assert.Greater(t, personaLike, 0.0)
	assert.Equal(t, 0.0, q.Similarity([]float32{1, 2, 3}))
}

func TestBuildQuery_Tokens(t *testing.T) {
	enc := embed.NewHashEncoder(32, nil)
	q, err := BuildQuery(context.Background(), enc, nil,
		"PhD Researcher in Computational Biology", "Literature review preparation", 0.4, 0.6)
	require.NoError(t, err)
	assert.Contains(t, q.Tokens, "biology")
	assert.Contains(t, q.Tokens, "literature")
	assert.NotContains(t, q.Tokens, "in")
}

func TestWeights_BlendMonotonicInSemantic(t *testing.T) {
	w := DefaultWeights()
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		f := Factors{Semantic: r.Float64(), Position: r.Float64(), Density: r.Float64(), Lexical: r.Float64()}
		higher := f
		higher.Semantic += 0.01 + r.Float64()
		assert.Greater(t, w.Blend(higher), w.Blend(f))
	}
}

func TestScorer_PositionAndDensity(t *testing.T) {
	s := newScorer(nil)
	assert.Equal(t, 1.0, s.positionWeight(0, 10))
	assert.InDelta(t, 0.5, s.positionWeight(9, 10), 1e-9)
	assert.Greater(t, s.positionWeight(3, 10), s.positionWeight(4, 10))
	assert.Equal(t, 1.0, s.positionWeight(0, 1))

	assert.Equal(t, 0.0, s.density(""))
	short := s.density("a few words here")
	assert.Greater(t, short, 0.0)
	assert.Less(t, short, 1.0)
	long := strings.Repeat("word ", 500)
	assert.Equal(t, 1.0, s.density(long))
	assert.Equal(t, 1.0, s.density(long+long))
}

var topics = []string{
	"protein structure prediction with deep learning",
	"benchmark datasets for gene expression",
	"statistical methods for sequence alignment",
	"graph neural networks on molecular data",
	"cooking pasta and tomato sauce",
	"history of medieval castles",
	"performance evaluation of clustering algorithms",
	"travel tips for coastal towns",
	"literature review of single cell methods",
}

func batch(nDocs, perDoc int) []doctree.Section {
	var out []doctree.Section
	for d := 0; d < nDocs; d++ {
		for i := 0; i < perDoc; i++ {
			topic := topics[(d*perDoc+i)%len(topics)]
			out = append(out, doctree.Section{
				DocID:    fmt.Sprintf("doc%d", d),
				DocName:  fmt.Sprintf("doc%d.pdf", d),
				DocOrder: d,
				Ordinal:  i,
				Heading:  &doctree.HeadingNode{Level: doctree.LevelH1, Text: doctree.Single("en", fmt.Sprintf("Section %d", i))},
				Body:     []string{"This part covers " + topic + ".", "It reports results on " + topic + "."},
			})
		}
	}
	return out
}

func TestRank_FortyFiveSections(t *testing.T) {
	enc := embed.NewHashEncoder(embed.DefaultDim, nil)
	q, err := BuildQuery(context.Background(), enc, nil,
		"PhD Researcher in Computational Biology", "Literature review preparation", 0.4, 0.6)
	require.NoError(t, err)

	s := newScorer(enc)
	sections := batch(2, 23)[:45]
	scored, omitted := s.Score(context.Background(), q, sections)
	require.Empty(t, omitted)
	require.Len(t, scored, 45)

	for _, k := range []int{0, 10} {
		ranked := Rank(scored, k, 0)
		want := 45
		if k > 0 {
			want = k
		}
		require.Len(t, ranked, want)
		for i, r := range ranked {
			assert.Equal(t, i+1, r.Rank)
			if i > 0 {
				assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
			}
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	enc := embed.NewHashEncoder(embed.DefaultDim, nil)
	q, err := BuildQuery(context.Background(), enc, nil, "biologist", "datasets and benchmarks", 0.4, 0.6)
	require.NoError(t, err)

	run := func() []string {
		s := newScorer(enc)
		scored, _ := s.Score(context.Background(), q, batch(3, 15))
		var ids []string
		for _, r := range Rank(scored, 0, 0) {
			ids = append(ids, fmt.Sprintf("%d:%s:%d", r.Rank, r.Section.DocID, r.Section.Ordinal))
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestRank_TieBreaks(t *testing.T) {
	secs := []doctree.Section{
		{DocOrder: 1, Ordinal: 0},
		{DocOrder: 0, Ordinal: 2},
		{DocOrder: 0, Ordinal: 1},
		{DocOrder: 0, Ordinal: 3},
	}
	scored := []ScoredSection{
		{Section: &secs[0], Score: 0.5},
		{Section: &secs[1], Score: 0.5},
		{Section: &secs[2], Score: 0.5},
		{Section: &secs[3], Score: 0.9},
	}
	ranked := Rank(scored, 0, 0)
	got := make([][2]int, len(ranked))
	for i, r := range ranked {
		got[i] = [2]int{r.Section.DocOrder, r.Section.Ordinal}
	}
	assert.Equal(t, [][2]int{{0, 3}, {0, 1}, {0, 2}, {1, 0}}, got)
}

func TestRank_MinRelevance(t *testing.T) {
	secs := []doctree.Section{{Ordinal: 0}, {Ordinal: 1}}
	ranked := Rank([]ScoredSection{{Section: &secs[0], Score: 0.2}, {Section: &secs[1], Score: 0.6}}, 0, 0.5)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 0.6, ranked[0].Score)
}

func TestScorer_OmitsUnembeddableSections(t *testing.T) {
	enc := &axisEncoder{hash: embed.NewHashEncoder(64, nil)}
	q, err := BuildQuery(context.Background(), enc, nil, "analyst", "find methods", 0.4, 0.6)
	require.NoError(t, err)

	sections := batch(1, 4)
	sections[2].Body = []string{"CORRUPT bytes"}
	scored, omitted := newScorer(enc).Score(context.Background(), q, sections)
	assert.Len(t, scored, 3)
	require.Len(t, omitted, 1)
	assert.Equal(t, 2, omitted[0].Section.Ordinal)
	assert.ErrorIs(t, omitted[0].Err, embed.ErrEmbeddingUnavailable)
}

func TestScorer_ExpiredBudgetOmitsEverything(t *testing.T) {
	enc := embed.NewHashEncoder(64, nil)
	q, err := BuildQuery(context.Background(), enc, nil, "analyst", "find methods", 0.4, 0.6)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scored, omitted := newScorer(enc).Score(ctx, q, batch(1, 5))
	assert.Empty(t, scored)
	require.Len(t, omitted, 5)
	assert.True(t, errors.Is(omitted[0].Err, context.Canceled))
}

func TestRefine_KeepsBestSentencesInOrder(t *testing.T) {
	enc := embed.NewHashEncoder(embed.DefaultDim, nil)
	q, err := BuildQuery(context.Background(), enc, nil, "biologist", "protein datasets", 0.4, 0.6)
	require.NoError(t, err)

	sec := &doctree.Section{Body: []string{
		"Weather was mild.",
		"We release protein datasets.",
		"Lunch was served.",
		"The datasets include protein structures.",
		"Parking is limited.",
	}}
	s := newScorer(enc)
	s.Params.RefinedSentences = 2
	ss := &ScoredSection{Section: sec}
	s.Refine(context.Background(), q, ss)

	assert.Len(t, ss.Sentences, 5)
	assert.Equal(t, "We release protein datasets. The datasets include protein structures.", ss.RefinedText)
}

func TestRefine_FallsBackToLexical(t *testing.T) {
	enc := &axisEncoder{hash: embed.NewHashEncoder(64, nil)}
	q, err := BuildQuery(context.Background(), enc, nil, "reader", "benchmark results", 0.4, 0.6)
	require.NoError(t, err)

	sec := &doctree.Section{Body: []string{"CORRUPT opening.", "Benchmark results follow.", "Nothing else."}}
	s := newScorer(enc)
	s.Params.RefinedSentences = 1
	ss := &ScoredSection{Section: sec}
	s.Refine(context.Background(), q, ss)
	assert.Equal(t, "Benchmark results follow.", ss.RefinedText)
	for _, sent := range ss.Sentences {
		assert.Equal(t, 0.0, sent.Semantic)
	}
}

func TestRefine_EmptyBody(t *testing.T) {
	enc := embed.NewHashEncoder(32, nil)
	q, err := BuildQuery(context.Background(), enc, nil, "reader", "anything", 0.4, 0.6)
	require.NoError(t, err)
	ss := &ScoredSection{Section: &doctree.Section{}}
	newScorer(enc).Refine(context.Background(), q, ss)
	assert.Empty(t, ss.RefinedText)
}
