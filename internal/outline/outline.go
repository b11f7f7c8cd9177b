// Package outline turns classified runs into a heading tree and partitions
// the document body into sections under those headings.
package outline

import (
	"github.com/dgallion1/docsift/internal/classify"
	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/features"
	"github.com/dgallion1/docsift/internal/langid"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Entry is one element of the tagged run stream: a merged heading or a
// single body run, in document order. Skipped runs never appear.
type Entry struct {
	Level   doctree.Level
	Text    string
	Page    int
	Heading *doctree.HeadingNode // nil for BODY and for the TITLE entry
}

// Outline is the structural result for one document.
type Outline struct {
	DocID     string
	DocName   string
	Method    string
	PageCount int

	Title         doctree.MultiText
	TitleFontSize float64

	Headings []*doctree.HeadingNode // H1..H3 in document order
	Roots    []*doctree.HeadingNode
	Stream   []Entry
}

// Options bundles the tunables for a full outline pass.
type Options struct {
	Features   features.Config
	Thresholds classify.Thresholds
	Detector   langid.Detector
}

// DefaultOptions returns default tunables with the script detector.
func DefaultOptions() Options {
	return Options{
		Features:   features.DefaultConfig(),
		Thresholds: classify.DefaultThresholds(),
		Detector:   langid.ScriptDetector{},
	}
}

// Extract runs annotation, classification and tree building on one document.
func Extract(doc *doctree.Document, opts Options) *Outline {
	if opts.Detector == nil {
		opts.Detector = langid.ScriptDetector{}
	}
	hist := features.NewHistogram(doc.Runs)
	runs := features.Annotate(doc, hist, opts.Features)
	levels := classify.Classify(runs, opts.Thresholds)
	return Build(doc, runs, levels, opts.Detector)
}

// group is a run of adjacent heading pieces that will become one node.
type group struct {
	level    doctree.Level
	page     int
	parts    []string
	last     doctree.BBox
	fontSize float64
}

// Build merges same-line heading runs, resolves the title and reconstructs
// nesting in a single pass over document order.
func Build(doc *doctree.Document, runs []doctree.AnnotatedRun, levels []doctree.Level, det langid.Detector) *Outline {
	o := &Outline{
		DocID:     doc.ID,
		DocName:   doc.Name,
		Method:    doc.Method,
		PageCount: doc.PageCount(),
	}

	var cur *group
	flush := func() {
		if cur == nil {
			return
		}
		o.appendHeading(cur, det)
		cur = nil
	}

	for i, r := range runs {
		lvl := levels[i]
		switch {
		case lvl == doctree.LevelSkip:
			continue
		case lvl == doctree.LevelBody:
			flush()
			o.Stream = append(o.Stream, Entry{Level: lvl, Text: textnorm.Normalize(r.Text), Page: r.Page})
		case lvl.IsHeading():
			if cur != nil && cur.level == lvl && cur.page == r.Page && cur.last.OverlapsVertically(r.BBox) {
				cur.parts = append(cur.parts, r.Text)
				cur.last = r.BBox
				cur.fontSize = max(cur.fontSize, r.FontSize)
				continue
			}
			flush()
			cur = &group{level: lvl, page: r.Page, parts: []string{r.Text}, last: r.BBox, fontSize: r.FontSize}
		}
	}
	flush()

	o.Roots = nest(o.Headings)
	return o
}

type headingKey struct {
	level doctree.Level
	text  string
	page  int
}

func (o *Outline) appendHeading(g *group, det langid.Detector) {
	text := headingText(g.parts, det)
	display := text.String()
	if display == "" {
		return
	}

	level := g.level
	if level == doctree.LevelTitle {
		if o.Title == nil {
			o.Title = text
			o.TitleFontSize = g.fontSize
			o.Stream = append(o.Stream, Entry{Level: level, Text: display, Page: g.page})
			return
		}
		level = doctree.LevelH1
	}

	// Identical headings on the same page are usually the same line split
	// by the extractor, so only the first one is kept.
	key := headingKey{level, display, g.page}
	for _, h := range o.Headings {
		if (headingKey{h.Level, h.Text.String(), h.Page}) == key {
			return
		}
	}

	node := &doctree.HeadingNode{
		Level:    level,
		Text:     text,
		Page:     g.page,
		FontSize: g.fontSize,
		Ordinal:  len(o.Headings),
	}
	o.Headings = append(o.Headings, node)
	o.Stream = append(o.Stream, Entry{Level: level, Text: display, Page: g.page, Heading: node})
}

// headingText joins heading pieces. When the pieces detect as different
// languages the result keeps one variant per language tag.
func headingText(parts []string, det langid.Detector) doctree.MultiText {
	byLang := make(map[string][]string)
	var order []string
	for _, p := range parts {
		p = textnorm.Normalize(p)
		if p == "" {
			continue
		}
		tag := det.Detect(p)
		if _, ok := byLang[tag]; !ok {
			order = append(order, tag)
		}
		byLang[tag] = append(byLang[tag], p)
	}

	known := 0
	for _, tag := range order {
		if tag != langid.Unknown {
			known++
		}
	}
	if known < 2 {
		joined := textnorm.JoinRuns(parts)
		if joined == "" {
			return doctree.MultiText{}
		}
		return doctree.Single(det.Detect(joined), joined)
	}

	mt := make(doctree.MultiText, len(order))
	for _, tag := range order {
		mt[tag] = textnorm.JoinRuns(byLang[tag])
	}
	return mt
}

// nest links headings into a tree with an explicit stack of open ancestors.
// A heading closes every open heading of the same or deeper level.
func nest(headings []*doctree.HeadingNode) []*doctree.HeadingNode {
	var roots []*doctree.HeadingNode
	stack := make([]*doctree.HeadingNode, 0, 3)
	for _, h := range headings {
		h.Children = nil
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, h)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, h)
		}
		stack = append(stack, h)
	}
	return roots
}
