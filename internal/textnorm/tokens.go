package textnorm

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Tokenizer splits text into folded word tokens. Japanese spans go through
// kagome when it is enabled; other CJK spans fall back to one token per rune.
type Tokenizer struct {
	ja *tokenizer.Tokenizer
}

// NewTokenizer builds a tokenizer. Loading the IPA dictionary is slow, so
// callers build one and share it; kagome tokenizers are safe for concurrent use.
func NewTokenizer(japanese bool) (*Tokenizer, error) {
	if !japanese {
		return &Tokenizer{}, nil
	}
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("load japanese dictionary: %w", err)
	}
	return &Tokenizer{ja: t}, nil
}

// Tokens returns every folded token of text in order.
func (t *Tokenizer) Tokens(text string) []string {
	folded := Fold(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
	})

	var out []string
	for _, f := range fields {
		if !containsCJK(f) {
			out = append(out, f)
			continue
		}
		if t != nil && t.ja != nil && containsJapanese(f) {
			for _, w := range t.ja.Wakati(f) {
				if w = strings.TrimSpace(w); w != "" {
					out = append(out, w)
				}
			}
			continue
		}
		out = append(out, splitCJK(f)...)
	}
	return out
}

// ContentTokens returns Tokens with stop words and single-letter Latin tokens removed.
func (t *Tokenizer) ContentTokens(text string) []string {
	all := t.Tokens(text)
	out := all[:0]
	for _, w := range all {
		if stopWords[w] {
			continue
		}
		if len([]rune(w)) < 2 && !containsCJK(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// TokenSet returns the distinct content tokens of text.
func (t *Tokenizer) TokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range t.ContentTokens(text) {
		set[w] = struct{}{}
	}
	return set
}

// splitCJK keeps Latin/digit stretches together and emits each CJK rune alone.
func splitCJK(s string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range s {
		if isCJK(r) {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, string(r))
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

func containsJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 && len(text) > 0 {
		tokens = 1
	}
	return tokens
}

// TruncateTokens keeps roughly the first maxTokens tokens of text, cutting on
// word boundaries. It never fails; maxTokens <= 0 returns text unchanged.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 || EstimateTokens(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	keep := int(math.Round(float64(maxTokens) / 1.33))
	if keep < 1 {
		keep = 1
	}
	if keep >= len(words) {
		return text
	}
	return strings.Join(words[:keep], " ")
}

var stopWords = func() map[string]bool {
	words := []string{
		// English
		"a", "an", "the", "and", "or", "but", "if", "then", "of", "in", "on", "at", "to", "for",
		"with", "by", "from", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its",
		"this", "that", "these", "those", "i", "you", "he", "she", "we", "they", "my", "our", "your",
		"their", "me", "us", "them", "do", "does", "did", "have", "has", "had", "not", "no", "so",
		"can", "will", "would", "should", "could", "may", "might", "must", "into", "about", "over",
		"than", "such", "all", "any", "each", "which", "who", "what", "when", "where", "how", "also",
		// Hindi / Marathi particles
		"का", "की", "के", "है", "हैं", "और", "में", "से", "को", "पर", "यह", "व", "आणि", "आहे",
		// Japanese particles
		"の", "は", "が", "を", "に", "で", "と", "も", "へ", "や", "から", "まで", "です", "ます",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
