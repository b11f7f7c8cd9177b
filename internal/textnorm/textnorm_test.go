package textnorm

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalize_CollapsesWhitespaceAndNFKC(t *testing.T) {
	got := Normalize("  Ｆｕｌｌ\t width \n text ")
	if got != "Full width text" {
		t.Errorf("expected %q, got %q", "Full width text", got)
	}
}

func TestBoilerplateKey_MasksDigits(t *testing.T) {
	a := BoilerplateKey("Page 3 of 10")
	b := BoilerplateKey("PAGE 4 of 10")
	if a != b {
		t.Errorf("expected equal keys, got %q and %q", a, b)
	}
}

func TestJoinRuns(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"Chapter", "One"}, "Chapter One"},
		{[]string{"日本", "語"}, "日本語"},
		{[]string{"Intro", "", "  duction "}, "Intro duction"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := JoinRuns(tt.parts); got != tt.want {
			t.Errorf("JoinRuns(%q) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestTokenizer_ContentTokensDropsStopWords(t *testing.T) {
	tok, err := NewTokenizer(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tok.ContentTokens("The Review of Graph Neural Networks, for drug discovery!")
	want := []string{"review", "graph", "neural", "networks", "drug", "discovery"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTokenizer_CJKFallbackSplitsRunes(t *testing.T) {
	tok, _ := NewTokenizer(false)
	got := tok.Tokens("中文abc")
	want := []string{"中", "文", "abc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTokenizer_JapaneseUsesDictionary(t *testing.T) {
	tok, err := NewTokenizer(true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := tok.ContentTokens("機械学習の研究")
	if len(got) == 0 {
		t.Fatal("expected japanese tokens")
	}
	for _, w := range got {
		if w == "の" {
			t.Errorf("expected particle to be removed, got %v", got)
		}
	}
}

func TestTokenizer_DevanagariKeepsVowelSigns(t *testing.T) {
	tok, _ := NewTokenizer(false)
	got := tok.Tokens("सारांश रिपोर्ट")
	if len(got) != 2 || got[0] != "सारांश" {
		t.Errorf("expected two whole devanagari words, got %v", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second one? Version 2.5 ships. यह वाक्य है। 次の文。")
	want := []string{"First one.", "Second one?", "Version 2.5 ships.", "यह वाक्य है।", "次の文。"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplitSentences_Empty(t *testing.T) {
	if got := SplitSentences("   "); len(got) != 0 {
		t.Errorf("expected no sentences, got %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if got := EstimateTokens(strings.Repeat("word ", 100)); got != 133 {
		t.Errorf("expected 133 tokens, got %d", got)
	}
}

func TestTruncateTokens(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	got := TruncateTokens(text, 133)
	if n := len(strings.Fields(got)); n != 100 {
		t.Errorf("expected 100 words, got %d", n)
	}
	short := "only three words"
	if TruncateTokens(short, 133) != short {
		t.Error("expected short text unchanged")
	}
}

func TestCheckIntegrity(t *testing.T) {
	tests := []struct {
		name string
		text string
		lang string
		bad  bool
	}{
		{"clean english", "A perfectly normal sentence.", "en", false},
		{"clean hindi", "यह एक सामान्य वाक्य है", "hi", false},
		{"mixed in word", "abcसारांश", "hi", true},
		{"replacement char", "broken � text", "en", true},
		{"repeated glyph", "aaaaaaa", "", true},
		{"wrong script", "this is plainly english text here", "hi", true},
		{"short text skips script check", "ok", "hi", false},
	}
	for _, tt := range tests {
		err := CheckIntegrity(tt.text, tt.lang)
		if tt.bad && !errors.Is(err, ErrMalformedEncoding) {
			t.Errorf("%s: expected ErrMalformedEncoding, got %v", tt.name, err)
		}
		if !tt.bad && err != nil {
			t.Errorf("%s: expected nil, got %v", tt.name, err)
		}
	}
}
