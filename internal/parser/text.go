package parser

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docsift/internal/doctree"
)

// TextParser handles plain text files. A form feed starts a new page. A
// paragraph that is a single short line without closing punctuation is
// treated as a heading.
type TextParser struct{}

const maxHeadingRunes = 60

func (p *TextParser) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	l := newLayout(filename, "text")
	var current []string
	flush := func() {
		switch {
		case len(current) == 0:
		case len(current) == 1 && looksLikeHeading(current[0]):
			l.heading(2, current[0])
		default:
			l.paragraph(strings.Join(current, " "), 0)
		}
		current = current[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		for {
			before, after, found := strings.Cut(line, "\f")
			if !found {
				break
			}
			if strings.TrimSpace(before) != "" {
				current = append(current, before)
			}
			flush()
			l.newPage()
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l.document(), nil
}

func looksLikeHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	return !strings.ContainsRune(".,;:!?।。", last)
}
