package parser

import (
	"errors"
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse(strings.NewReader("x"), "file.xyz", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Path != "file.xyz" {
		t.Errorf("expected path in error, got %q", pe.Path)
	}
}

func TestParse_CorruptPDF(t *testing.T) {
	_, err := Parse(strings.NewReader("this is not a pdf"), "broken.pdf", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParse_SetsBaseName(t *testing.T) {
	doc, err := Parse(strings.NewReader("Hello there."), "/tmp/in/hello.txt", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Name != "hello.txt" {
		t.Errorf("expected base name, got %q", doc.Name)
	}
}

func TestIsSupportedExtension(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a.pdf", true},
		{"A.PDF", true},
		{"b.docx", true},
		{"c.md", true},
		{"d.exe", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsSupportedExtension(tt.name); got != tt.want {
			t.Errorf("IsSupportedExtension(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGroupGlyphs_MergesLineAndSplitsFonts(t *testing.T) {
	glyphs := []pdflib.Text{
		{Font: "Helvetica-Bold", FontSize: 18, X: 72, Y: 700, W: 10, S: "I"},
		{Font: "Helvetica-Bold", FontSize: 18, X: 82, Y: 700, W: 10, S: "n"},
		{Font: "Helvetica-Bold", FontSize: 18, X: 100, Y: 700, W: 10, S: "t"},
		{Font: "Helvetica", FontSize: 10, X: 72, Y: 670, W: 5, S: "b"},
		{Font: "Helvetica", FontSize: 10, X: 77, Y: 670, W: 5, S: "o"},
		{Font: "Helvetica", FontSize: 10, X: 300, Y: 670, W: 5, S: "z"},
	}
	runs := groupGlyphs(glyphs, 0, 792)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Text != "In t" {
		t.Errorf("expected word gap to become a space, got %q", runs[0].Text)
	}
	if runs[0].FontFamily != "Helvetica-Bold" || runs[0].FontSize != 18 {
		t.Errorf("unexpected font: %q %v", runs[0].FontFamily, runs[0].FontSize)
	}
	if runs[0].BBox.Y0 != 792-700-18 || runs[0].BBox.Y1 != 92 {
		t.Errorf("expected top-left coordinates, got %+v", runs[0].BBox)
	}
	if runs[1].Text != "bo" || runs[2].Text != "z" {
		t.Errorf("expected column jump to split runs, got %q %q", runs[1].Text, runs[2].Text)
	}
}

func TestLayoutPlainText_Pages(t *testing.T) {
	doc := layoutPlainText("one\ntwo\f three \f", "x.pdf", "pdftotext")
	if doc.Method != "pdftotext" {
		t.Errorf("expected method tag, got %q", doc.Method)
	}
	if doc.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount())
	}
	if len(doc.Runs) != 3 || doc.Runs[2].Text != "three" || doc.Runs[2].Page != 1 {
		t.Errorf("unexpected runs: %+v", doc.Runs)
	}
}

func TestHTMLParser_TitleAndHeadings(t *testing.T) {
	input := `<html><head><title>Guide</title><style>p{}</style></head>
<body><nav>skip me</nav><h1>Start</h1><p>Hello world.</p><ul><li>Item one</li></ul><h3>Deep</h3><p>More.</p></body></html>`
	doc, err := (&HTMLParser{}).Extract(strings.NewReader(input), "g.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	for _, r := range doc.Runs {
		texts = append(texts, r.Text)
	}
	if got := strings.Join(texts, "|"); got != "Guide|Start|Hello world.|Item one|Deep|More." {
		t.Errorf("unexpected runs: %s", got)
	}
	if doc.Runs[0].FontSize != headingSize(0) || doc.Runs[4].FontSize != headingSize(3) {
		t.Errorf("unexpected heading sizes: %v %v", doc.Runs[0].FontSize, doc.Runs[4].FontSize)
	}
}

func TestCSVParser_RowBlocks(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,score\n")
	for i := 0; i < 25; i++ {
		b.WriteString("row,1\n")
	}
	doc, err := (&CSVParser{}).Extract(strings.NewReader(b.String()), "scores.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One title heading, two block headings, 25 rows.
	if len(doc.Runs) != 28 {
		t.Fatalf("expected 28 runs, got %d", len(doc.Runs))
	}
	if doc.Runs[0].Text != "scores" || doc.Runs[1].Text != "Rows 2-21" {
		t.Errorf("unexpected headings: %q %q", doc.Runs[0].Text, doc.Runs[1].Text)
	}
	if doc.Runs[2].Text != "name: row, score: 1" {
		t.Errorf("unexpected row text: %q", doc.Runs[2].Text)
	}
}
