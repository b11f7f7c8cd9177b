// Package features computes per-run layout features relative to the run's
// own document: font-size percentile, boldness, indent, spacing and whether
// the run is repeated page furniture.
package features

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Config holds the annotator tunables.
type Config struct {
	// BoilerplateFraction is the fraction of pages a text must recur on,
	// strictly exceeded, to count as header/footer. Default: 0.6
	BoilerplateFraction float64 `yaml:"boilerplate_fraction" validate:"gt=0,lte=1"`

	// BoilerplateMinPages is the minimum recurrence count. Default: 2
	BoilerplateMinPages int `yaml:"boilerplate_min_pages" validate:"gte=1"`

	// BoilerplateMaxChars skips long runs, which are never page furniture. Default: 80
	BoilerplateMaxChars int `yaml:"boilerplate_max_chars" validate:"gte=1"`

	// VerticalBuckets splits the page height for position grouping. Default: 20
	VerticalBuckets int `yaml:"vertical_buckets" validate:"gte=1"`

	// IndentBucketWidth in points. Default: 24
	IndentBucketWidth float64 `yaml:"indent_bucket_width" validate:"gt=0"`

	// MaxIndentBucket caps the indent ordinal; 0 puts every run in bucket 0.
	// Default: 5
	MaxIndentBucket int `yaml:"max_indent_bucket" validate:"gte=0"`
}

// DefaultConfig returns the default annotator configuration.
func DefaultConfig() Config {
	return Config{
		BoilerplateFraction: 0.6,
		BoilerplateMinPages: 2,
		BoilerplateMaxChars: 80,
		VerticalBuckets:     20,
		IndentBucketWidth:   24,
		MaxIndentBucket:     5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BoilerplateFraction <= 0 || c.BoilerplateFraction > 1 {
		c.BoilerplateFraction = d.BoilerplateFraction
	}
	if c.BoilerplateMinPages <= 0 {
		c.BoilerplateMinPages = d.BoilerplateMinPages
	}
	if c.BoilerplateMaxChars <= 0 {
		c.BoilerplateMaxChars = d.BoilerplateMaxChars
	}
	if c.VerticalBuckets <= 0 {
		c.VerticalBuckets = d.VerticalBuckets
	}
	if c.IndentBucketWidth <= 0 {
		c.IndentBucketWidth = d.IndentBucketWidth
	}
	if c.MaxIndentBucket < 0 {
		c.MaxIndentBucket = d.MaxIndentBucket
	}
	return c
}

// Histogram is the sorted font-size distribution of one document. It is a
// plain value so each worker owns its own copy.
type Histogram struct {
	sizes []float64
}

// NewHistogram collects the font sizes of runs.
func NewHistogram(runs []doctree.TextRun) Histogram {
	sizes := make([]float64, len(runs))
	for i, r := range runs {
		sizes[i] = r.FontSize
	}
	sort.Float64s(sizes)
	return Histogram{sizes: sizes}
}

// Len returns the number of samples.
func (h Histogram) Len() int { return len(h.sizes) }

// Percentile returns the fraction of samples strictly smaller than size.
func (h Histogram) Percentile(size float64) float64 {
	if h.Len() == 0 {
		return 0
	}
	return float64(sort.SearchFloat64s(h.sizes, size)) / float64(len(h.sizes))
}

// Annotate derives one AnnotatedRun per run of doc, preserving order.
// hist must have been built from the same document.
func Annotate(doc *doctree.Document, hist Histogram, cfg Config) []doctree.AnnotatedRun {
	cfg = cfg.withDefaults()
	margins := leftMargins(doc.Runs)
	boiler := boilerplateRuns(doc, cfg)

	out := make([]doctree.AnnotatedRun, len(doc.Runs))
	prevOnPage := make(map[int]int)
	for i, r := range doc.Runs {
		gap := r.BBox.Y0
		if p, ok := prevOnPage[r.Page]; ok {
			gap = math.Max(0, r.BBox.Y0-doc.Runs[p].BBox.Y1)
		}
		prevOnPage[r.Page] = i

		out[i] = doctree.AnnotatedRun{
			TextRun:        r,
			Index:          i,
			SizePercentile: hist.Percentile(r.FontSize),
			IsBold:         IsBold(r),
			IndentBucket:   indentBucket(r.BBox.X0-margins[r.Page], cfg),
			GapAbove:       gap,
			Boilerplate:    boiler[i],
		}
	}
	return out
}

var boldMarkers = []string{"bold", "bld", "black", "heavy", "semibold", "demi", ",b"}

// IsBold uses the weight flag when the parser set one, else the font name.
func IsBold(r doctree.TextRun) bool {
	switch r.Weight {
	case doctree.WeightBold:
		return true
	case doctree.WeightRegular:
		return false
	}
	name := strings.ToLower(r.FontFamily)
	for _, m := range boldMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func leftMargins(runs []doctree.TextRun) map[int]float64 {
	m := make(map[int]float64)
	for _, r := range runs {
		if textnorm.IsBlank(r.Text) {
			continue
		}
		if cur, ok := m[r.Page]; !ok || r.BBox.X0 < cur {
			m[r.Page] = r.BBox.X0
		}
	}
	return m
}

func indentBucket(offset float64, cfg Config) int {
	if offset <= 0 {
		return 0
	}
	b := int(offset / cfg.IndentBucketWidth)
	if b > cfg.MaxIndentBucket {
		b = cfg.MaxIndentBucket
	}
	return b
}

type boilerKey struct {
	text   string
	bucket int
	skip   bool
}

// boilerplateRuns flags runs whose folded text recurs at the same vertical
// band on more than the configured fraction of pages.
func boilerplateRuns(doc *doctree.Document, cfg Config) []bool {
	flags := make([]bool, len(doc.Runs))
	pageCount := doc.PageCount()
	if pageCount < cfg.BoilerplateMinPages {
		return flags
	}

	keys := make([]boilerKey, len(doc.Runs))
	pages := make(map[boilerKey]map[int]struct{})
	for i, r := range doc.Runs {
		text := textnorm.BoilerplateKey(r.Text)
		if text == "" || utf8.RuneCountInString(text) > cfg.BoilerplateMaxChars {
			keys[i] = boilerKey{skip: true}
			continue
		}
		k := boilerKey{text: text, bucket: verticalBucket(r, doc.PageHeight(r.Page), cfg)}
		keys[i] = k
		if pages[k] == nil {
			pages[k] = make(map[int]struct{})
		}
		pages[k][r.Page] = struct{}{}
	}

	threshold := cfg.BoilerplateFraction * float64(pageCount)
	for i, k := range keys {
		if k.skip {
			continue
		}
		n := len(pages[k])
		flags[i] = n >= cfg.BoilerplateMinPages && float64(n) > threshold
	}
	return flags
}

func verticalBucket(r doctree.TextRun, pageHeight float64, cfg Config) int {
	if pageHeight <= 0 {
		return int(r.BBox.Y0 / 50)
	}
	b := int(r.BBox.Y0 / pageHeight * float64(cfg.VerticalBuckets))
	if b >= cfg.VerticalBuckets {
		b = cfg.VerticalBuckets - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}
