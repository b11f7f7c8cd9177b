package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/report"
)

var (
	outlineInput  string
	outlineOutput string
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Write one outline JSON per document",
	Long: `Extract the title and H1/H2/H3 outline of every supported document in the
input directory. Each document produces <name>.json in the output directory,
even when it cannot be parsed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		proc, cfg, err := newProcessor(log)
		if err != nil {
			return err
		}
		inputs, err := pipeline.ReadInputs(outlineInput)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			return fmt.Errorf("no supported documents in %s", outlineInput)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.BatchBudget)
		defer cancel()
		results := proc.OutlineAll(ctx, inputs, nil)
		for _, r := range results {
			path := filepath.Join(outlineOutput, report.OutlineFileName(r.Name))
			if err := report.WriteJSON(path, r.Record()); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderOutlineSummary(results))
		return nil
	},
}

func init() {
	outlineCmd.Flags().StringVarP(&outlineInput, "input", "i", "input", "Directory of documents")
	outlineCmd.Flags().StringVarP(&outlineOutput, "output", "o", "output", "Directory for outline JSON")
	rootCmd.AddCommand(outlineCmd)
}
