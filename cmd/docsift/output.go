package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderOutlineSummary(results []pipeline.DocResult) string {
	t := newTable("Document", "Method", "Pages", "Headings", "Top-level", "Status")
	for _, r := range results {
		rec := r.Record()
		status := "ok"
		if rec.Metadata.Error != "" {
			status = errorStyle.Render(pipeline.ErrorKind(r.Err))
		}
		roots := 0
		if r.Outline != nil {
			roots = len(r.Outline.Roots)
		}
		t.Row(rec.Metadata.Document, rec.Metadata.ExtractionMethod,
			fmt.Sprint(rec.Metadata.PageCount), fmt.Sprint(rec.Metadata.TotalHeadings), fmt.Sprint(roots), status)
	}
	return titleStyle.Render("Outlines") + "\n" + t.Render()
}

func renderRanking(rec report.RankingRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ranked sections"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("persona: %s | task: %s | %d sections", rec.Metadata.Persona, rec.Metadata.Task, rec.Metadata.SectionCount)))
	b.WriteString("\n")

	t := newTable("#", "Document", "Page", "Section", "Score")
	for _, s := range rec.ExtractedSections {
		title := truncate(s.SectionTitle.String(), 48)
		if s.LowConfidence {
			title = warnStyle.Render(title + " (low confidence)")
		}
		t.Row(fmt.Sprint(s.ImportanceRank), s.Document, fmt.Sprint(s.PageNumber), title, fmt.Sprintf("%.4f", s.RelevanceScore))
	}
	b.WriteString(t.Render())

	for _, f := range rec.Metadata.FailedDocuments {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("failed: %s (%s)", f.Document, f.Kind)))
	}
	if n := len(rec.Metadata.OmittedSections); n > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("omitted %d section(s); see ranking.json", n)))
	}
	if rec.Metadata.Incomplete {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("batch ran out of time; results are incomplete"))
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
