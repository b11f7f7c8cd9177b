// Package classify assigns each annotated run a structural level with an
// ordered rule cascade over its layout features.
package classify

import (
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Thresholds tunes the cascade. The order of the rules is fixed; only the
// numbers move between corpora.
type Thresholds struct {
	// Title is the minimum size percentile for TITLE. Default: 0.97
	Title float64 `yaml:"title" validate:"gte=0,lte=1"`

	// H1 is the minimum size percentile for H1. Default: 0.90
	H1 float64 `yaml:"h1" validate:"gte=0,lte=1"`

	// H2 is the minimum size percentile for H2, which also needs bold or
	// a shallow indent. Default: 0.75
	H2 float64 `yaml:"h2" validate:"gte=0,lte=1"`

	// H3 is the minimum size percentile for bold H3 runs. Default: 0.60
	H3 float64 `yaml:"h3" validate:"gte=0,lte=1"`

	// TitleMaxRunIndex limits TITLE to the first N eligible runs. Default: 5
	TitleMaxRunIndex int `yaml:"title_max_run_index" validate:"gte=0"`

	// H2MaxIndentBucket is the deepest indent that still qualifies a
	// non-bold run for H2. Default: 1
	H2MaxIndentBucket int `yaml:"h2_max_indent_bucket" validate:"gte=0"`
}

// DefaultThresholds returns the starting-point thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Title:             0.97,
		H1:                0.90,
		H2:                0.75,
		H3:                0.60,
		TitleMaxRunIndex:  5,
		H2MaxIndentBucket: 1,
	}
}

// Eligible reports whether a run may be a heading or body at all.
func Eligible(r doctree.AnnotatedRun) bool {
	return !r.Boilerplate && !textnorm.IsBlank(r.Text)
}

// Classify returns one level per run, index-aligned with runs.
//
// When no eligible run reaches the H1 threshold the document has no usable
// size contrast, and every H2/H3 is demoted to BODY so the outline stays flat.
func Classify(runs []doctree.AnnotatedRun, th Thresholds) []doctree.Level {
	levels := make([]doctree.Level, len(runs))
	eligibleSeen := 0
	hasH1Contrast := false

	for i, r := range runs {
		if !Eligible(r) {
			levels[i] = doctree.LevelSkip
			continue
		}
		levels[i] = classifyOne(r, eligibleSeen, th)
		eligibleSeen++
		if r.SizePercentile >= th.H1 {
			hasH1Contrast = true
		}
	}

	if !hasH1Contrast {
		for i, l := range levels {
			if l == doctree.LevelH2 || l == doctree.LevelH3 {
				levels[i] = doctree.LevelBody
			}
		}
	}
	return levels
}

func classifyOne(r doctree.AnnotatedRun, ordinal int, th Thresholds) doctree.Level {
	p := r.SizePercentile
	switch {
	case p >= th.Title && r.Page == 0 && ordinal < th.TitleMaxRunIndex:
		return doctree.LevelTitle
	case p >= th.H1:
		return doctree.LevelH1
	case p >= th.H2 && (r.IsBold || r.IndentBucket <= th.H2MaxIndentBucket):
		return doctree.LevelH2
	case p >= th.H3 && r.IsBold:
		return doctree.LevelH3
	default:
		return doctree.LevelBody
	}
}
