package outline

import (
	"errors"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/langid"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// Segment partitions the outline's body runs into sections, one per heading
// plus a leading preamble when body text precedes the first heading.
//
// Each body run belongs to exactly one section, the one opened by the nearest
// preceding heading, so concatenating all sections rebuilds the body. The page
// range of a section covers its whole extent, which runs until the next
// heading of the same or a shallower level.
func Segment(o *Outline, docOrder int, det langid.Detector) []doctree.Section {
	if det == nil {
		det = langid.ScriptDetector{}
	}

	var sections []doctree.Section
	var pre *doctree.Section
	cur := -1
	for _, e := range o.Stream {
		switch {
		case e.Heading != nil:
			sections = append(sections, doctree.Section{
				Heading:   e.Heading,
				PageStart: e.Page,
				PageEnd:   e.Page,
			})
			cur = len(sections) - 1
		case e.Level == doctree.LevelBody:
			if cur < 0 {
				if pre == nil {
					pre = &doctree.Section{PageStart: e.Page, PageEnd: e.Page}
				}
				pre.Body = append(pre.Body, e.Text)
				pre.PageEnd = max(pre.PageEnd, e.Page)
				continue
			}
			sections[cur].Body = append(sections[cur].Body, e.Text)
		}
	}

	extendPageRanges(o.Stream, sections)

	if pre != nil {
		sections = append([]doctree.Section{*pre}, sections...)
	}
	for i := range sections {
		s := &sections[i]
		s.DocID = o.DocID
		s.DocName = o.DocName
		s.DocOrder = docOrder
		s.Ordinal = i
		flagIntegrity(s, det)
	}
	return sections
}

// extendPageRanges sets each heading section's PageEnd to the last page
// touched before the next heading of equal or shallower level.
func extendPageRanges(stream []Entry, sections []doctree.Section) {
	idx := 0
	for i, e := range stream {
		if e.Heading == nil {
			continue
		}
		end := e.Page
		for _, next := range stream[i+1:] {
			if next.Heading != nil && next.Heading.Level <= e.Heading.Level {
				break
			}
			end = max(end, next.Page)
		}
		sections[idx].PageEnd = end
		idx++
	}
}

func flagIntegrity(s *doctree.Section, det langid.Detector) {
	body := s.BodyText()
	if body == "" {
		s.Lang = langid.Unknown
		return
	}
	s.Lang = det.Detect(body)
	if err := textnorm.CheckIntegrity(s.Title()+" "+body, s.Lang); errors.Is(err, textnorm.ErrMalformedEncoding) {
		s.LowConfidence = true
	}
}
