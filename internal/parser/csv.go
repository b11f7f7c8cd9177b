package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// CSVParser handles CSV files. Rows are grouped into blocks of 20, each under
// an H2-sized heading naming the row range, one body run per row.
type CSVParser struct{}

const csvBatchSize = 20

func (p *CSVParser) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	l := newLayout(filename, "csv")
	if len(records) == 0 {
		return l.document(), nil
	}

	l.heading(1, trimExt(filename))
	headers := records[0]
	dataRows := records[1:]
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))
		l.heading(2, fmt.Sprintf("Rows %d-%d", i+2, end+1)) // 1-indexed, skip header
		for _, row := range dataRows[i:end] {
			l.line(csvRow(headers, row))
		}
	}
	return l.document(), nil
}

func csvRow(headers, row []string) string {
	parts := make([]string, 0, len(row))
	for j, cell := range row {
		if j < len(headers) {
			parts = append(parts, headers[j]+": "+cell)
		} else {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, ", ")
}
