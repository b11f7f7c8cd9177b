package classify

import (
	"testing"

	"github.com/dgallion1/docsift/internal/doctree"
)

func ann(text string, page int, pct float64, bold bool, indent int) doctree.AnnotatedRun {
	return doctree.AnnotatedRun{
		TextRun:        doctree.TextRun{Text: text, Page: page},
		SizePercentile: pct,
		IsBold:         bold,
		IndentBucket:   indent,
	}
}

func TestClassify_Cascade(t *testing.T) {
	runs := []doctree.AnnotatedRun{
		ann("Big Title", 0, 0.98, true, 0),
		ann("Chapter", 0, 0.92, false, 0),
		ann("Section bold", 0, 0.80, true, 3),
		ann("Section flush", 0, 0.80, false, 1),
		ann("Deep indented", 0, 0.80, false, 4),
		ann("Sub bold", 0, 0.65, true, 2),
		ann("Sub plain", 0, 0.65, false, 0),
		ann("body", 0, 0.10, false, 0),
	}
	want := []doctree.Level{
		doctree.LevelTitle,
		doctree.LevelH1,
		doctree.LevelH2,
		doctree.LevelH2,
		doctree.LevelBody,
		doctree.LevelH3,
		doctree.LevelBody,
		doctree.LevelBody,
	}
	got := Classify(runs, DefaultThresholds())
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("run %q: expected %v, got %v", runs[i].Text, want[i], got[i])
		}
	}
}

func TestClassify_TitleOnlyOnFirstPageEarly(t *testing.T) {
	runs := []doctree.AnnotatedRun{
		ann("a", 0, 0.1, false, 0),
		ann("b", 0, 0.1, false, 0),
		ann("c", 0, 0.1, false, 0),
		ann("d", 0, 0.1, false, 0),
		ann("e", 0, 0.1, false, 0),
		ann("Late large", 0, 0.99, false, 0),
		ann("Other page large", 1, 0.99, false, 0),
	}
	got := Classify(runs, DefaultThresholds())
	if got[5] != doctree.LevelH1 {
		t.Errorf("expected late run to fall through to H1, got %v", got[5])
	}
	if got[6] != doctree.LevelH1 {
		t.Errorf("expected page-1 run to fall through to H1, got %v", got[6])
	}
}

func TestClassify_SkipsBoilerplateAndBlank(t *testing.T) {
	bp := ann("Header", 0, 0.99, true, 0)
	bp.Boilerplate = true
	runs := []doctree.AnnotatedRun{bp, ann("   ", 0, 0.99, true, 0), ann("Real", 0, 0.99, true, 0)}
	got := Classify(runs, DefaultThresholds())
	if got[0] != doctree.LevelSkip || got[1] != doctree.LevelSkip {
		t.Errorf("expected skipped runs, got %v %v", got[0], got[1])
	}
	// Skipped runs do not count toward the title window.
	if got[2] != doctree.LevelTitle {
		t.Errorf("expected first eligible run to be TITLE, got %v", got[2])
	}
}

func TestClassify_FlatWithoutH1Contrast(t *testing.T) {
	runs := []doctree.AnnotatedRun{
		ann("Looks like H2", 0, 0.80, true, 0),
		ann("Looks like H3", 0, 0.65, true, 0),
		ann("body", 0, 0.2, false, 0),
	}
	got := Classify(runs, DefaultThresholds())
	for i, l := range got {
		if l != doctree.LevelBody {
			t.Errorf("run %d: expected BODY in flat document, got %v", i, l)
		}
	}
}

func TestClassify_ThresholdsAreTunable(t *testing.T) {
	th := DefaultThresholds()
	th.H1 = 0.5
	got := Classify([]doctree.AnnotatedRun{ann("x", 1, 0.55, false, 0)}, th)
	if got[0] != doctree.LevelH1 {
		t.Errorf("expected H1 with lowered threshold, got %v", got[0])
	}
}

func TestClassify_IntroScenario(t *testing.T) {
	runs := []doctree.AnnotatedRun{
		ann("Intro", 0, 0.95, true, 0),
		ann("A paragraph of text.", 0, 0.40, false, 0),
	}
	got := Classify(runs, DefaultThresholds())
	if got[0] != doctree.LevelH1 || got[1] != doctree.LevelBody {
		t.Errorf("expected [H1 BODY], got %v", got)
	}
}
