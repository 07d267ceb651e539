// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rob-extract/internal/pipeline"
	"github.com/pdiddy/rob-extract/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract risk-of-bias tables and the discrepancy report",
	Long: `Extract parses every review document found by scan and writes:

  robs.csv                            one row per risk-of-bias judgment
  references.csv                      one row per study reference
  rob_groups.csv                      names seen for each criterion and group
  studies_with_multiple_reviews.json  studies judged differently across reviews

A document that fails to parse is reported and left out; the command exits
non-zero after writing the outputs for the rest. Use --fail-fast to stop on
the first failure instead.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	outcome, err := pipeline.New(cfg, slog.Default()).Run(ctx, w)
	if err != nil {
		return err
	}

	if index, _ := cmd.Flags().GetBool("index"); index {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()
		if _, err := s.Ingest(ctx, outcome.Results, w); err != nil {
			return err
		}
	}

	if outcome.Batch.HasFailures() {
		return fmt.Errorf("%d of %d document(s) failed extraction",
			outcome.Batch.Failed+outcome.Batch.NotRun, outcome.Batch.Total())
	}
	return nil
}

func init() {
	f := extractCmd.Flags()
	f.Bool("fail-fast", false, "abort the run on the first document that fails")
	f.String("out-dir", ".", "directory for the output files")
	f.String("report-format", "json", "discrepancy report format: json or yaml")
	f.String("workbook", "", "also write all tables to this XLSX file")
	f.Bool("index", false, "also load the records into the SQLite index")

	bindFlags(f, map[string]string{
		"batch.fail_fast":      "fail-fast",
		"output.dir":           "out-dir",
		"output.report_format": "report-format",
		"output.workbook":      "workbook",
	})

	rootCmd.AddCommand(extractCmd)
}
