package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/report"
)

const (
	defaultPersona = "PhD Researcher in Computational Biology"
	defaultTask    = "Prepare a comprehensive literature review focusing on methodologies, datasets, and performance benchmarks"
)

var (
	rankInput   string
	rankOutput  string
	rankPersona string
	rankTask    string
	rankTopK    int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank sections across documents for a persona and task",
	Long: `Outline every supported document in the input directory, then rank all of
their sections against the persona and task. Persona and task come from the
flags, else from persona.txt and job.txt in the input directory, else from
built-in defaults. The result is written to ranking.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		proc, _, err := newProcessor(log)
		if err != nil {
			return err
		}
		inputs, err := pipeline.ReadInputs(rankInput)
		if err != nil {
			return err
		}
		inputs = withoutQueryFiles(inputs)
		if len(inputs) == 0 {
			return fmt.Errorf("no supported documents in %s", rankInput)
		}

		persona, err := resolveText(rankPersona, filepath.Join(rankInput, "persona.txt"), defaultPersona)
		if err != nil {
			return err
		}
		task, err := resolveText(rankTask, filepath.Join(rankInput, "job.txt"), defaultTask)
		if err != nil {
			return err
		}

		res := proc.Rank(cmd.Context(), pipeline.Request{
			Inputs:  inputs,
			Persona: persona,
			Task:    task,
			TopK:    rankTopK,
		})
		rec := res.Record()
		if err := report.WriteJSON(filepath.Join(rankOutput, "ranking.json"), rec); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderRanking(rec))
		return nil
	},
}

func init() {
	rankCmd.Flags().StringVarP(&rankInput, "input", "i", "input", "Directory of documents")
	rankCmd.Flags().StringVarP(&rankOutput, "output", "o", "output", "Directory for ranking.json")
	rankCmd.Flags().StringVar(&rankPersona, "persona", "", "Persona description")
	rankCmd.Flags().StringVar(&rankTask, "task", "", "Task the persona needs done")
	rankCmd.Flags().IntVarP(&rankTopK, "top-k", "k", 0, "Sections to keep (0 = configured default)")
	rootCmd.AddCommand(rankCmd)
}

// resolveText prefers the flag value, then the file's contents, then def.
func resolveText(flag, path, def string) (string, error) {
	if s := strings.TrimSpace(flag); s != "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s, nil
	}
	return def, nil
}

// withoutQueryFiles drops persona.txt and job.txt from the document set.
func withoutQueryFiles(inputs []pipeline.Input) []pipeline.Input {
	out := inputs[:0]
	for _, in := range inputs {
		if in.Name == "persona.txt" || in.Name == "job.txt" {
			continue
		}
		out = append(out, in)
	}
	return out
}
