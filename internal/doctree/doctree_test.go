package doctree

import (
	"encoding/json"
	"testing"
)

func TestMultiText_SingleMarshalsAsString(t *testing.T) {
	b, err := json.Marshal(Single("en", "Introduction"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"Introduction"` {
		t.Errorf("expected plain string, got %s", b)
	}
}

func TestMultiText_SeveralMarshalAsObject(t *testing.T) {
	m := MultiText{"en": "Summary", "hi": "सारांश"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"en":"Summary","hi":"सारांश"}` {
		t.Errorf("unexpected json: %s", b)
	}
	if m.Lang() != "mul" {
		t.Errorf("expected lang mul, got %q", m.Lang())
	}
	if m.String() != "Summary सारांश" {
		t.Errorf("expected joined text in tag order, got %q", m.String())
	}
}

func TestMultiText_UnmarshalBothForms(t *testing.T) {
	var a, b MultiText
	if err := json.Unmarshal([]byte(`"Intro"`), &a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.String() != "Intro" {
		t.Errorf("expected Intro, got %q", a.String())
	}
	if err := json.Unmarshal([]byte(`{"en":"A","ja":"エー"}`), &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(b) != 2 {
		t.Errorf("expected 2 variants, got %d", len(b))
	}
}

func TestLevel_JSONRoundTrip(t *testing.T) {
	for _, l := range []Level{LevelTitle, LevelH1, LevelH2, LevelH3, LevelBody, LevelSkip} {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal %v: %v", l, err)
		}
		var got Level
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != l {
			t.Errorf("expected %v, got %v", l, got)
		}
	}
}

func TestBBox_OverlapsVertically(t *testing.T) {
	a := BBox{X0: 0, Y0: 100, X1: 50, Y1: 112}
	sameLine := BBox{X0: 60, Y0: 102, X1: 90, Y1: 114}
	nextLine := BBox{X0: 0, Y0: 112, X1: 50, Y1: 124}
	if !a.OverlapsVertically(sameLine) {
		t.Error("expected boxes on the same line to overlap")
	}
	if a.OverlapsVertically(nextLine) {
		t.Error("expected touching boxes on consecutive lines not to overlap")
	}
}

func TestDocument_PageCountFallsBackToRuns(t *testing.T) {
	d := &Document{Runs: []TextRun{{Page: 0}, {Page: 3}}}
	if d.PageCount() != 4 {
		t.Errorf("expected 4 pages, got %d", d.PageCount())
	}
	if d.PageHeight(1) != 0 {
		t.Errorf("expected unknown height 0, got %f", d.PageHeight(1))
	}
}

func TestLevel_IsHeading(t *testing.T) {
	for _, l := range []Level{LevelTitle, LevelH1, LevelH2, LevelH3} {
		if !l.IsHeading() {
			t.Errorf("%v should be a heading", l)
		}
	}
	for _, l := range []Level{LevelBody, LevelSkip} {
		if l.IsHeading() {
			t.Errorf("%v should not be a heading", l)
		}
	}
}
