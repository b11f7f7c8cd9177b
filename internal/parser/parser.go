package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsift/internal/doctree"
)

// Extractor converts raw document bytes into positioned text runs.
type Extractor interface {
	Extract(r io.Reader, filename string) (*doctree.Document, error)
}

// ParseError marks a document that could not be decoded. The batch skips
// it and reports the failure in the output metadata.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Options controls extractor behaviour.
type Options struct {
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Parse picks an extractor for filename and runs it. Every failure,
// including a panic inside a format library on corrupt input, comes back
// as a *ParseError.
func Parse(r io.Reader, filename string, opts Options) (doc *doctree.Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, &ParseError{Path: filename, Err: fmt.Errorf("extractor panic: %v", rec)}
		}
	}()

	ex, err := ForFile(filename, opts)
	if err != nil {
		return nil, &ParseError{Path: filename, Err: err}
	}
	doc, err = ex.Extract(r, filepath.Base(filename))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &ParseError{Path: filename, Err: err}
	}
	return doc, nil
}

func trimExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
