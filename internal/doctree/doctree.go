package doctree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BBox is a run's bounding box in page space, origin top-left, y growing downward.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// OverlapsVertically reports whether two boxes share any vertical span,
// i.e. they sit on the same visual line.
func (b BBox) OverlapsVertically(o BBox) bool {
	return b.Y0 < o.Y1 && o.Y0 < b.Y1
}

// FontWeight records what the source format told us about weight.
type FontWeight int

const (
	WeightUnknown FontWeight = iota // Parser had no weight flag; fall back to font name
	WeightRegular
	WeightBold
)

// TextRun is a contiguous piece of text on one page with uniform font attributes.
type TextRun struct {
	Text       string
	Page       int // 0-based
	BBox       BBox
	FontSize   float64
	Weight     FontWeight
	FontFamily string
}

// Page holds per-page geometry needed for page-relative positions.
type Page struct {
	Index  int
	Width  float64
	Height float64
}

// Document is the output of a run extractor: every run of one input in reading order.
type Document struct {
	ID     string // Ingestion-order identifier, stable within a batch
	Name   string // Display name, usually the base filename
	Method string // Extraction method tag, e.g. "pdf", "pdftotext", "markdown"
	Pages  []Page
	Runs   []TextRun
}

// PageCount returns the number of pages, falling back to the highest run page.
func (d *Document) PageCount() int {
	if len(d.Pages) > 0 {
		return len(d.Pages)
	}
	n := 0
	for _, r := range d.Runs {
		if r.Page+1 > n {
			n = r.Page + 1
		}
	}
	return n
}

// PageHeight returns the height of page i, or 0 if unknown.
func (d *Document) PageHeight(i int) float64 {
	if i >= 0 && i < len(d.Pages) {
		return d.Pages[i].Height
	}
	return 0
}

// AnnotatedRun is a TextRun plus its document-relative features.
type AnnotatedRun struct {
	TextRun
	Index          int     // Position in the document's run stream
	SizePercentile float64 // Fraction of runs in the same document with strictly smaller font size
	IsBold         bool
	IndentBucket   int
	GapAbove       float64
	Boilerplate    bool
}

// Level is the structural role assigned to a run.
type Level int

const (
	LevelTitle Level = iota
	LevelH1
	LevelH2
	LevelH3
	LevelBody
	LevelSkip // Boilerplate or empty; neither heading nor body
)

func (l Level) String() string {
	switch l {
	case LevelTitle:
		return "TITLE"
	case LevelH1:
		return "H1"
	case LevelH2:
		return "H2"
	case LevelH3:
		return "H3"
	case LevelBody:
		return "BODY"
	default:
		return "SKIP"
	}
}

// IsHeading reports whether l is TITLE, H1, H2 or H3.
func (l Level) IsHeading() bool { return l >= LevelTitle && l <= LevelH3 }

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "TITLE":
		*l = LevelTitle
	case "H1":
		*l = LevelH1
	case "H2":
		*l = LevelH2
	case "H3":
		*l = LevelH3
	case "BODY":
		*l = LevelBody
	case "SKIP":
		*l = LevelSkip
	default:
		return fmt.Errorf("unknown level %q", s)
	}
	return nil
}

// MultiText is text that may carry one variant per language tag.
// A single variant serializes as a plain JSON string; several as an object.
type MultiText map[string]string

// Single wraps one string under a language tag.
func Single(lang, text string) MultiText {
	return MultiText{lang: text}
}

// String joins all variants in tag order, for display and embedding.
func (m MultiText) String() string {
	if len(m) == 1 {
		for _, v := range m {
			return v
		}
	}
	tags := m.Tags()
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, m[t])
	}
	return strings.Join(parts, " ")
}

// Tags returns the language tags in sorted order.
func (m MultiText) Tags() []string {
	tags := make([]string, 0, len(m))
	for t := range m {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Lang returns the single tag, or "mul" when several variants exist.
func (m MultiText) Lang() string {
	switch len(m) {
	case 0:
		return ""
	case 1:
		for t := range m {
			return t
		}
	}
	return "mul"
}

func (m MultiText) MarshalJSON() ([]byte, error) {
	if len(m) <= 1 {
		return json.Marshal(m.String())
	}
	return json.Marshal(map[string]string(m))
}

func (m *MultiText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = MultiText{"und": s}
		return nil
	}
	var mm map[string]string
	if err := json.Unmarshal(b, &mm); err != nil {
		return err
	}
	*m = mm
	return nil
}

// HeadingNode is one entry of the outline tree.
type HeadingNode struct {
	Level    Level
	Text     MultiText
	Page     int
	FontSize float64
	Ordinal  int // Position among the document's headings, document order

	Children []*HeadingNode
}

// Section is the body text governed by one heading.
type Section struct {
	DocID     string
	DocName   string
	DocOrder  int          // Ingestion order of the owning document
	Ordinal   int          // Position within the document, preamble first
	Heading   *HeadingNode // nil for the preamble
	Body      []string     // BODY run texts in document order
	PageStart int
	PageEnd   int

	Lang          string // Detected language of the body
	LowConfidence bool   // Body failed the encoding integrity check
}

// Title returns the heading text, or "" for the preamble.
func (s *Section) Title() string {
	if s.Heading == nil {
		return ""
	}
	return s.Heading.Text.String()
}

// BodyText joins the body runs with single spaces.
func (s *Section) BodyText() string {
	return strings.Join(s.Body, " ")
}
