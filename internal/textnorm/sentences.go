package textnorm

import "strings"

// SplitSentences does terminator-based sentence splitting. Latin terminators
// need following whitespace (or end of text); the Devanagari danda and CJK
// full stops end a sentence on their own.
func SplitSentences(text string) []string {
	rs := []rune(Normalize(text))
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i, r := range rs {
		current.WriteRune(r)
		switch r {
		case '।', '॥', '。', '！', '？':
			flush()
		case '.', '!', '?':
			if i+1 == len(rs) || rs[i+1] == ' ' {
				flush()
			}
		}
	}
	flush()
	return sentences
}
