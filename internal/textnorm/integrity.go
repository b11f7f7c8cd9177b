package textnorm

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformedEncoding marks text whose characters look corrupted or
// inconsistent with its detected language.
var ErrMalformedEncoding = errors.New("malformed encoding")

// CheckIntegrity returns a wrapped ErrMalformedEncoding describing the first
// problem found in text, or nil. lang may be "" when unknown.
func CheckIntegrity(text, lang string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: invalid utf-8", ErrMalformedEncoding)
	}
	if strings.ContainsRune(text, utf8.RuneError) {
		return fmt.Errorf("%w: replacement characters present", ErrMalformedEncoding)
	}
	for _, w := range strings.Fields(text) {
		if mixesDevanagariLatin(w) {
			return fmt.Errorf("%w: mixed devanagari and latin in %q", ErrMalformedEncoding, w)
		}
	}
	if r, n := longestRepeat(text); n >= 5 && unicode.IsLetter(r) {
		return fmt.Errorf("%w: %q repeated %d times", ErrMalformedEncoding, r, n)
	}
	if script := expectedScript(lang); script != nil {
		letters, match := 0, 0
		for _, r := range text {
			if !unicode.IsLetter(r) {
				continue
			}
			letters++
			if unicode.In(r, script...) {
				match++
			}
		}
		if letters >= 10 && float64(match)/float64(letters) < 0.5 {
			return fmt.Errorf("%w: script does not match language %s", ErrMalformedEncoding, lang)
		}
	}
	return nil
}

func mixesDevanagariLatin(word string) bool {
	var dev, latin bool
	for _, r := range word {
		switch {
		case unicode.Is(unicode.Devanagari, r):
			dev = true
		case r < utf8.RuneSelf && unicode.IsLetter(r):
			latin = true
		}
	}
	return dev && latin
}

func longestRepeat(text string) (rune, int) {
	var best, prev rune
	bestN, n := 0, 0
	for _, r := range text {
		if r == prev {
			n++
		} else {
			prev, n = r, 1
		}
		if n > bestN {
			best, bestN = r, n
		}
	}
	return best, bestN
}

func expectedScript(lang string) []*unicode.RangeTable {
	switch lang {
	case "hi", "mr", "ne":
		return []*unicode.RangeTable{unicode.Devanagari}
	case "ja":
		return []*unicode.RangeTable{unicode.Han, unicode.Hiragana, unicode.Katakana}
	case "zh":
		return []*unicode.RangeTable{unicode.Han}
	case "ko":
		return []*unicode.RangeTable{unicode.Hangul, unicode.Han}
	case "ru", "uk", "bg":
		return []*unicode.RangeTable{unicode.Cyrillic}
	case "ar", "fa", "ur":
		return []*unicode.RangeTable{unicode.Arabic}
	case "en", "fr", "de", "es", "it", "pt", "nl":
		return []*unicode.RangeTable{unicode.Latin}
	}
	return nil
}
