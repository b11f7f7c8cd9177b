package langid

import "testing"

func TestScriptDetector(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Introduction to graph networks", "en"},
		{"सारांश और निष्कर्ष", "hi"},
		{"機械学習の研究", "ja"},
		{"机器学习", "zh"},
		{"기계 학습", "ko"},
		{"Введение", "ru"},
		{"12345 --", Unknown},
		{"", Unknown},
	}
	var d ScriptDetector
	for _, tt := range tests {
		if got := d.Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestNew_ScriptBackend(t *testing.T) {
	if _, ok := New("script").(ScriptDetector); !ok {
		t.Error("expected ScriptDetector for script backend")
	}
}

func TestLinguaDetector_BlankIsUnknown(t *testing.T) {
	d := NewLinguaDetector()
	if got := d.Detect("   "); got != Unknown {
		t.Errorf("expected %q, got %q", Unknown, got)
	}
}
