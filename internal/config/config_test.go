package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.Tuning.Classifier.H1 != 0.90 {
		t.Errorf("expected default H1 0.90, got %v", cfg.Tuning.Classifier.H1)
	}
	if cfg.Tuning.Ranking.TopK != 10 || cfg.Tuning.Ranking.Weights.Semantic != 0.7 {
		t.Errorf("unexpected ranking defaults: %+v", cfg.Tuning.Ranking)
	}
	if cfg.DocBudget != 10*time.Second || cfg.BatchBudget != time.Minute {
		t.Errorf("unexpected budgets: %v %v", cfg.DocBudget, cfg.BatchBudget)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("H2_PERCENTILE", "0.8")
	t.Setenv("TOP_K", "0")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("DOC_BUDGET", "nonsense")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tuning.Classifier.H2 != 0.8 {
		t.Errorf("expected H2 override, got %v", cfg.Tuning.Classifier.H2)
	}
	if cfg.Tuning.Ranking.TopK != 0 {
		t.Errorf("expected TopK 0 (unlimited), got %d", cfg.Tuning.Ranking.TopK)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected invalid worker count clamped to 4, got %d", cfg.WorkerCount)
	}
	if cfg.DocBudget != 10*time.Second {
		t.Errorf("expected unparseable duration to fall back, got %v", cfg.DocBudget)
	}
}

func TestLoad_TuningFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "classifier:\n  h1: 0.85\nranking:\n  weights:\n    semantic: 0.6\n    lexical: 0.2\n  top_k: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCSIFT_TUNING_FILE", path)
	t.Setenv("WEIGHT_LEXICAL", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tuning.Classifier.H1 != 0.85 {
		t.Errorf("expected H1 from file, got %v", cfg.Tuning.Classifier.H1)
	}
	if cfg.Tuning.Classifier.H2 != 0.75 {
		t.Errorf("expected untouched H2 default, got %v", cfg.Tuning.Classifier.H2)
	}
	if cfg.Tuning.Ranking.TopK != 5 || cfg.Tuning.Ranking.Weights.Semantic != 0.6 {
		t.Errorf("unexpected ranking from file: %+v", cfg.Tuning.Ranking)
	}
	if cfg.Tuning.Ranking.Weights.Lexical != 0.25 {
		t.Errorf("expected env to override file, got %v", cfg.Tuning.Ranking.Weights.Lexical)
	}
	if cfg.Tuning.Ranking.Weights.Position != 0.1 {
		t.Errorf("expected default position weight, got %v", cfg.Tuning.Ranking.Weights.Position)
	}
}

func TestLoad_BadTuningFile(t *testing.T) {
	t.Setenv("DOCSIFT_TUNING_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing tuning file")
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := Load()
	cfg.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without API key")
	}
	cfg.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Tuning.Ranking.Weights.Density = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}

func TestTuning_ValidateRanges(t *testing.T) {
	tu := DefaultTuning()
	if err := tu.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	tu.Classifier.H1 = 1.5
	tu.Features.VerticalBuckets = 0
	err := tu.Validate()
	if err == nil {
		t.Fatal("expected range errors")
	}
	for _, want := range []string{"Tuning.Classifier.H1", "Tuning.Features.VerticalBuckets"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestTuning_ZeroBoilerplateFractionRejected(t *testing.T) {
	tu := DefaultTuning()
	tu.Features.BoilerplateFraction = 0
	err := tu.Validate()
	if err == nil || !strings.Contains(err.Error(), "Tuning.Features.BoilerplateFraction") {
		t.Fatalf("expected BoilerplateFraction error, got %v", err)
	}

	tu = DefaultTuning()
	tu.Features.MaxIndentBucket = 0
	if err := tu.Validate(); err != nil {
		t.Errorf("MaxIndentBucket 0 should be accepted, got %v", err)
	}
}

func TestLoad_RejectsOutOfRangeEnv(t *testing.T) {
	t.Setenv("H3_PERCENTILE", "2")
	if _, err := Load(); err == nil {
		t.Error("expected error for percentile above 1")
	}
}
