package parser

import (
	"unicode/utf8"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Formats without page geometry are laid out on virtual US Letter pages so
// the layout heuristics see the same signals a PDF would give them.
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 72.0
	indentStep = 24.0
	bodySize   = 10.0
)

// headingSizes maps a native heading level to a synthetic font size.
// Level 0 is a document title.
var headingSizes = []float64{24, 20, 16, 13}

func headingSize(level int) float64 {
	if level >= 0 && level < len(headingSizes) {
		return headingSizes[level]
	}
	return 11.5
}

// layout places synthetic runs top to bottom, breaking pages as they fill.
type layout struct {
	doc *doctree.Document
	y   float64
}

func newLayout(name, method string) *layout {
	l := &layout{doc: &doctree.Document{Name: name, Method: method}}
	l.newPage()
	return l
}

func (l *layout) page() int { return len(l.doc.Pages) - 1 }

func (l *layout) newPage() {
	l.doc.Pages = append(l.doc.Pages, doctree.Page{Index: len(l.doc.Pages), Width: pageWidth, Height: pageHeight})
	l.y = margin
}

func (l *layout) add(text string, size float64, bold bool, indent int) {
	text = textnorm.Normalize(text)
	if text == "" {
		return
	}
	if l.y+size > pageHeight-margin {
		l.newPage()
	}
	weight := doctree.WeightRegular
	if bold {
		weight = doctree.WeightBold
	}
	x0 := margin + float64(indent)*indentStep
	width := min(float64(utf8.RuneCountInString(text))*size*0.5, pageWidth-margin-x0)
	l.doc.Runs = append(l.doc.Runs, doctree.TextRun{
		Text:     text,
		Page:     l.page(),
		BBox:     doctree.BBox{X0: x0, Y0: l.y, X1: x0 + width, Y1: l.y + size},
		FontSize: size,
		Weight:   weight,
	})
	l.y += size * 1.4
}

// heading emits a bold run sized for level, with extra space above.
func (l *layout) heading(level int, text string) {
	l.y += bodySize
	l.add(text, headingSize(level), true, 0)
}

// paragraph emits one body run per sentence and a paragraph gap after.
func (l *layout) paragraph(text string, indent int) {
	for _, s := range textnorm.SplitSentences(text) {
		l.add(s, bodySize, false, indent)
	}
	l.y += bodySize * 0.6
}

// line emits text as a single body run.
func (l *layout) line(text string) {
	l.add(text, bodySize, false, 0)
}

func (l *layout) document() *doctree.Document {
	return l.doc
}
