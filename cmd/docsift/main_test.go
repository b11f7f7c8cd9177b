package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/report"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func markdown(h1, h2 string) string {
	var b strings.Builder
	for _, h := range []string{h1, h2} {
		fmt.Fprintf(&b, "# %s\n\n", h)
		for i := range 10 {
			fmt.Fprintf(&b, "Notes on %s continue with item %s. ", strings.ToLower(h), strings.Repeat("q", i+1))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func offlineEnv(t *testing.T) {
	t.Setenv("LANGID_BACKEND", "script")
	t.Setenv("TOKENIZER_JAPANESE", "false")
	t.Setenv("EMBED_URL", "")
	t.Setenv("DOCSIFT_TUNING_FILE", "")
}

func TestResolveText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "persona.txt", "  Travel Planner \n")
	writeFile(t, dir, "blank.txt", "   ")

	got, err := resolveText("Chef", filepath.Join(dir, "persona.txt"), "def")
	require.NoError(t, err)
	assert.Equal(t, "Chef", got)

	got, err = resolveText("", filepath.Join(dir, "persona.txt"), "def")
	require.NoError(t, err)
	assert.Equal(t, "Travel Planner", got)

	got, err = resolveText("", filepath.Join(dir, "blank.txt"), "def")
	require.NoError(t, err)
	assert.Equal(t, "def", got)

	got, err = resolveText("", filepath.Join(dir, "missing.txt"), "def")
	require.NoError(t, err)
	assert.Equal(t, "def", got)
}

func TestWithoutQueryFiles(t *testing.T) {
	in := []pipeline.Input{{Name: "a.pdf"}, {Name: "job.txt"}, {Name: "persona.txt"}, {Name: "notes.txt"}}
	out := withoutQueryFiles(in)
	require.Len(t, out, 2)
	assert.Equal(t, "a.pdf", out[0].Name)
	assert.Equal(t, "notes.txt", out[1].Name)
}

func TestOutlineAndRankCommands(t *testing.T) {
	offlineEnv(t)
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "alpha.md", markdown("Methods", "Results"))
	writeFile(t, in, "beta.md", markdown("Datasets", "Benchmarks"))
	writeFile(t, in, "job.txt", "Compare benchmark datasets")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"outline", "-i", in, "-o", out})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "alpha.md")

	data, err := os.ReadFile(filepath.Join(out, "alpha.json"))
	require.NoError(t, err)
	var outline report.OutlineRecord
	require.NoError(t, json.Unmarshal(data, &outline))
	assert.Equal(t, 2, outline.Metadata.TotalHeadings)

	stdout.Reset()
	rootCmd.SetArgs([]string{"rank", "-i", in, "-o", out, "--top-k", "2"})
	require.NoError(t, rootCmd.Execute())

	data, err = os.ReadFile(filepath.Join(out, "ranking.json"))
	require.NoError(t, err)
	var ranking report.RankingRecord
	require.NoError(t, json.Unmarshal(data, &ranking))
	assert.Equal(t, defaultPersona, ranking.Metadata.Persona)
	assert.Equal(t, "Compare benchmark datasets", ranking.Metadata.Task)
	assert.Equal(t, []string{"alpha.md", "beta.md"}, ranking.Metadata.InputDocuments)
	assert.Equal(t, 4, ranking.Metadata.SectionCount)
	require.Len(t, ranking.ExtractedSections, 2)
	assert.Equal(t, 1, ranking.ExtractedSections[0].ImportanceRank)
	assert.Contains(t, stdout.String(), "Ranked sections")
}

func TestRankCommand_OnlyQueryFiles(t *testing.T) {
	offlineEnv(t)
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "persona.txt", "Travel Planner")
	writeFile(t, in, "job.txt", "Plan a trip")

	rootCmd.SetArgs([]string{"rank", "-i", in, "-o", out})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported documents")
	assert.NoFileExists(t, filepath.Join(out, "ranking.json"))
}

func TestOutlineCommand_BatchBudget(t *testing.T) {
	offlineEnv(t)
	t.Setenv("BATCH_BUDGET", "1ns")
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "alpha.md", markdown("Methods", "Results"))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"outline", "-i", in, "-o", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join(out, "alpha.json"))
	require.NoError(t, err)
	var rec report.OutlineRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.True(t, rec.Metadata.Incomplete)
	assert.True(t, strings.HasPrefix(rec.Metadata.Error, "budget_exceeded: "), rec.Metadata.Error)
	assert.Contains(t, stdout.String(), "Top-level")
}
