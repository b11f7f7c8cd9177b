// Package langid detects the language of short text spans such as headings.
package langid

import (
	"strings"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// Unknown is returned when no language can be determined.
const Unknown = "und"

// Detector maps text to a lowercase ISO 639-1 tag, or Unknown.
type Detector interface {
	Detect(text string) string
}

// ScriptDetector guesses the language from the dominant Unicode script.
// It is deterministic and cheap, and cannot tell apart languages that share
// a script (every Latin-script text reports "en").
type ScriptDetector struct{}

var scripts = []struct {
	table *unicode.RangeTable
	tag   string
}{
	{unicode.Devanagari, "hi"},
	{unicode.Hiragana, "ja"},
	{unicode.Katakana, "ja"},
	{unicode.Han, "zh"},
	{unicode.Hangul, "ko"},
	{unicode.Cyrillic, "ru"},
	{unicode.Arabic, "ar"},
	{unicode.Greek, "el"},
	{unicode.Thai, "th"},
	{unicode.Latin, "en"},
}

func (ScriptDetector) Detect(text string) string {
	counts := make(map[string]int)
	kana := false
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		for _, s := range scripts {
			if unicode.Is(s.table, r) {
				counts[s.tag]++
				if s.tag == "ja" {
					kana = true
				}
				break
			}
		}
	}
	// Han shared with kana is Japanese.
	if kana {
		counts["ja"] += counts["zh"]
		delete(counts, "zh")
	}
	best, bestN := Unknown, 0
	for _, s := range scripts {
		if n := counts[s.tag]; n > bestN {
			best, bestN = s.tag, n
		}
	}
	return best
}

// LinguaDetector uses lingua's n-gram models over a fixed language set and
// falls back to script detection when lingua is not confident.
type LinguaDetector struct {
	detector lingua.LanguageDetector
	fallback ScriptDetector
}

// DefaultLanguages is the set loaded by NewLinguaDetector when none is given.
var DefaultLanguages = []lingua.Language{
	lingua.English, lingua.Hindi, lingua.Marathi, lingua.Japanese, lingua.Chinese,
	lingua.Korean, lingua.French, lingua.German, lingua.Spanish, lingua.Portuguese,
	lingua.Italian, lingua.Russian, lingua.Arabic,
}

// NewLinguaDetector builds a detector. Model loading is lazy inside lingua,
// so the first Detect call per language is slower than the rest.
func NewLinguaDetector(languages ...lingua.Language) *LinguaDetector {
	if len(languages) < 2 {
		languages = DefaultLanguages
	}
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
	}
}

func (d *LinguaDetector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}
	if lang, ok := d.detector.DetectLanguageOf(text); ok {
		return strings.ToLower(lang.IsoCode639_1().String())
	}
	return d.fallback.Detect(text)
}

// New returns the detector for a backend name: "script" or "lingua".
func New(backend string) Detector {
	if strings.EqualFold(backend, "script") {
		return ScriptDetector{}
	}
	return NewLinguaDetector()
}
