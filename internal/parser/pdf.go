package parser

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

var errNoText = errors.New("no extractable text")

// PDFParser reads positioned glyphs with the Go library and groups them into
// runs. When that fails, or finds no text, it can fall back to pdftotext,
// which keeps page breaks but loses font information.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docsift-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFRuns(tmpPath)
	if err == nil && len(doc.Runs) == 0 {
		err = errNoText
	}
	if err != nil && p.FallbackPdftotext {
		text, ferr := extractPdftotext(tmpPath)
		if ferr == nil {
			return layoutPlainText(text, filename, "pdftotext"), nil
		}
		err = fmt.Errorf("%w (fallback: %v)", err, ferr)
	}
	if errors.Is(err, errNoText) {
		// Image-only pages are not a parse failure; the outline is just empty.
		doc.Name = filename
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	doc.Name = filename
	return doc, nil
}

func extractPDFRuns(path string) (doc *doctree.Document, err error) {
	// The library panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc = &doctree.Document{Method: "pdf"}
	for i := 1; i <= reader.NumPage(); i++ {
		idx := i - 1
		page := reader.Page(i)
		if page.V.IsNull() {
			doc.Pages = append(doc.Pages, doctree.Page{Index: idx, Width: pageWidth, Height: pageHeight})
			continue
		}
		w, h := mediaBox(page.V)
		doc.Pages = append(doc.Pages, doctree.Page{Index: idx, Width: w, Height: h})
		doc.Runs = append(doc.Runs, groupGlyphs(page.Content().Text, idx, h)...)
	}
	return doc, nil
}

// mediaBox returns the page size, following the inherited Parent chain.
func mediaBox(v pdflib.Value) (float64, float64) {
	for depth := 0; depth < 8 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() >= 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return pageWidth, pageHeight
}

// glyphRun accumulates glyphs that share a line and font.
type glyphRun struct {
	text     strings.Builder
	font     string
	size     float64
	x0, x1   float64
	baseline float64
}

// groupGlyphs merges glyphs in content-stream order into runs. A run breaks
// on a font change, a baseline change, or a horizontal jump wider than a
// few em (a column gap). Smaller gaps become a single space.
func groupGlyphs(glyphs []pdflib.Text, page int, height float64) []doctree.TextRun {
	var runs []doctree.TextRun
	var cur *glyphRun

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(cur.text.String())
		if text != "" {
			runs = append(runs, doctree.TextRun{
				Text: text,
				Page: page,
				BBox: doctree.BBox{
					X0: cur.x0,
					Y0: height - cur.baseline - cur.size,
					X1: cur.x1,
					Y1: height - cur.baseline,
				},
				FontSize:   cur.size,
				Weight:     doctree.WeightUnknown,
				FontFamily: cur.font,
			})
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if cur != nil {
			gap := g.X - cur.x1
			sameLine := math.Abs(g.Y-cur.baseline) < 0.5
			sameFont := g.Font == cur.font && math.Abs(g.FontSize-cur.size) < 0.1
			if sameLine && sameFont && gap > -g.FontSize && gap < 3*g.FontSize {
				if gap > 0.2*g.FontSize && !strings.HasSuffix(cur.text.String(), " ") && g.S != " " {
					cur.text.WriteByte(' ')
				}
				cur.text.WriteString(g.S)
				cur.x1 = math.Max(cur.x1, g.X+g.W)
				continue
			}
			flush()
		}
		cur = &glyphRun{font: g.Font, size: g.FontSize, x0: g.X, x1: g.X + g.W, baseline: g.Y}
		cur.text.WriteString(g.S)
	}
	flush()
	return runs
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// layoutPlainText turns form-feed separated page text into one uniform body
// run per non-empty line.
func layoutPlainText(text, filename, method string) *doctree.Document {
	l := newLayout(filename, method)
	for i, pageText := range strings.Split(text, "\f") {
		if i > 0 {
			l.newPage()
		}
		for _, line := range strings.Split(pageText, "\n") {
			l.line(line)
		}
	}
	// A trailing form feed leaves an empty last page.
	doc := l.document()
	if n := len(doc.Pages); n > 1 && strings.HasSuffix(text, "\f") {
		doc.Pages = doc.Pages[:n-1]
	}
	return doc
}
