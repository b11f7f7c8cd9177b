// Package textnorm holds the text utilities shared by the outline and ranking
// stages: normalization, tokenization, sentence splitting and integrity checks.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC and collapses every whitespace run to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// Fold normalizes s and case-folds it for comparisons.
// A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return cases.Fold().String(Normalize(s))
}

// IsBlank reports whether s has no visible content after normalization.
func IsBlank(s string) bool {
	return Normalize(s) == ""
}

// BoilerplateKey folds s and masks digits so running headers such as
// "Page 3" and "Page 4" group together.
func BoilerplateKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return '#'
		}
		return r
	}, Fold(s))
}

// JoinRuns concatenates run texts in reading order. No separator is inserted
// between two CJK runs, since those scripts do not use inter-word spaces.
func JoinRuns(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		p = Normalize(p)
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			prev := b.String()
			if !(endsCJK(prev) && startsCJK(p)) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(p)
	}
	return b.String()
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

func startsCJK(s string) bool {
	for _, r := range s {
		return isCJK(r)
	}
	return false
}

func endsCJK(s string) bool {
	rs := []rune(s)
	return len(rs) > 0 && isCJK(rs[len(rs)-1])
}
