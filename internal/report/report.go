// Package report defines the JSON artifacts written by the outline and
// ranking stages.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docsift/internal/doctree"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/rank"
)

// OutlineEntry is one heading in an outline record.
type OutlineEntry struct {
	Level            doctree.Level     `json:"level"`
	Text             doctree.MultiText `json:"text"`
	Page             int               `json:"page"`
	FontSize         float64           `json:"font_size"`
	DetectedLanguage string            `json:"detected_language"`
}

type OutlineMetadata struct {
	Document         string `json:"document"`
	PageCount        int    `json:"page_count"`
	TotalHeadings    int    `json:"total_headings"`
	ExtractionMethod string `json:"extraction_method"`
	Error            string `json:"error,omitempty"`
	Incomplete       bool   `json:"incomplete"`
}

// OutlineRecord is the per-document outline artifact.
type OutlineRecord struct {
	Title    doctree.MultiText `json:"title"`
	Outline  []OutlineEntry    `json:"outline"`
	Metadata OutlineMetadata   `json:"metadata"`
}

// NewOutlineRecord builds the record for one document. o may be nil when
// the document failed; kind is the error taxonomy tag for err.
func NewOutlineRecord(name string, o *outline.Outline, err error, kind string, incomplete bool) OutlineRecord {
	rec := OutlineRecord{
		Outline:  []OutlineEntry{},
		Metadata: OutlineMetadata{Document: name, Incomplete: incomplete},
	}
	if err != nil {
		rec.Metadata.Error = fmt.Sprintf("%s: %v", kind, err)
	}
	if o == nil {
		return rec
	}

	rec.Title = o.Title
	for _, h := range o.Headings {
		rec.Outline = append(rec.Outline, OutlineEntry{
			Level:            h.Level,
			Text:             h.Text,
			Page:             h.Page,
			FontSize:         round(h.FontSize, 2),
			DetectedLanguage: h.Text.Lang(),
		})
	}
	rec.Metadata.PageCount = o.PageCount
	rec.Metadata.TotalHeadings = len(o.Headings)
	rec.Metadata.ExtractionMethod = o.Method
	return rec
}

// Failure describes a document that produced no sections.
type Failure struct {
	Document string `json:"document"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Omitted describes a section left out of the ranking.
type Omitted struct {
	Document     string `json:"document"`
	SectionTitle string `json:"section_title"`
	Kind         string `json:"kind"`
	Message      string `json:"message"`
}

type RankingMetadata struct {
	InputDocuments      []string  `json:"input_documents"`
	Persona             string    `json:"persona"`
	Task                string    `json:"task"`
	ProcessingTimestamp string    `json:"processing_timestamp"`
	SectionCount        int       `json:"section_count"`
	RelevanceThreshold  float64   `json:"relevance_threshold"`
	Incomplete          bool      `json:"incomplete"`
	FailedDocuments     []Failure `json:"failed_documents"`
	OmittedSections     []Omitted `json:"omitted_sections"`
}

type ExtractedSection struct {
	Document       string            `json:"document"`
	PageNumber     int               `json:"page_number"`
	SectionTitle   doctree.MultiText `json:"section_title"`
	ImportanceRank int               `json:"importance_rank"`
	RelevanceScore float64           `json:"relevance_score"`
	LowConfidence  bool              `json:"low_confidence"`
}

type SubSection struct {
	Document    string `json:"document"`
	PageNumber  int    `json:"page_number"`
	RefinedText string `json:"refined_text"`
}

// RankingRecord is the per-batch ranking artifact.
type RankingRecord struct {
	Metadata          RankingMetadata    `json:"metadata"`
	ExtractedSections []ExtractedSection `json:"extracted_sections"`
	SubSections       []SubSection       `json:"sub_section_analysis"`
}

// RankingInput carries what NewRankingRecord needs from a finished batch.
type RankingInput struct {
	Documents          []string
	Persona            string
	Task               string
	Timestamp          time.Time
	SectionCount       int
	RelevanceThreshold float64
	Incomplete         bool
	Failed             []Failure
	Omitted            []Omitted
	Ranked             []rank.ScoredSection
}

// NewRankingRecord renders ranked sections. Page numbers are 1-based.
func NewRankingRecord(in RankingInput) RankingRecord {
	rec := RankingRecord{
		Metadata: RankingMetadata{
			InputDocuments:      nonNil(in.Documents),
			Persona:             in.Persona,
			Task:                in.Task,
			ProcessingTimestamp: in.Timestamp.UTC().Format(time.RFC3339),
			SectionCount:        in.SectionCount,
			RelevanceThreshold:  in.RelevanceThreshold,
			Incomplete:          in.Incomplete,
			FailedDocuments:     nonNil(in.Failed),
			OmittedSections:     nonNil(in.Omitted),
		},
		ExtractedSections: make([]ExtractedSection, 0, len(in.Ranked)),
		SubSections:       make([]SubSection, 0, len(in.Ranked)),
	}
	for _, r := range in.Ranked {
		sec := r.Section
		rec.ExtractedSections = append(rec.ExtractedSections, ExtractedSection{
			Document:       sec.DocName,
			PageNumber:     sec.PageStart + 1,
			SectionTitle:   SectionHeading(sec),
			ImportanceRank: r.Rank,
			RelevanceScore: round(r.Score, 4),
			LowConfidence:  sec.LowConfidence,
		})
		rec.SubSections = append(rec.SubSections, SubSection{
			Document:    sec.DocName,
			PageNumber:  sec.PageStart + 1,
			RefinedText: r.RefinedText,
		})
	}
	return rec
}

// SectionHeading is the heading text with its language variants, or the
// document name for a preamble.
func SectionHeading(s *doctree.Section) doctree.MultiText {
	if s.Heading != nil && s.Heading.Text.String() != "" {
		return s.Heading.Text
	}
	lang := s.Lang
	if lang == "" {
		lang = "und"
	}
	return doctree.Single(lang, strings.TrimSuffix(s.DocName, filepath.Ext(s.DocName)))
}

// SectionTitle is SectionHeading flattened to one string.
func SectionTitle(s *doctree.Section) string {
	return SectionHeading(s).String()
}

// WriteJSON writes v as indented JSON, keeping non-ASCII text readable.
// The file is written to a temp name and renamed into place.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// OutlineFileName maps an input name to its outline artifact name.
func OutlineFileName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
