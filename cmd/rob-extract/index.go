// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rob-extract/internal/batch"
	"github.com/pdiddy/rob-extract/internal/scan"
	"github.com/pdiddy/rob-extract/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load extracted records into the SQLite index",
	Long: `Index extracts the corpus and replaces each document's rows in the SQLite
record index. Documents that fail keep whatever rows they had before.

With --study it instead lists the review files that contain a study id.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	if studyID, _ := cmd.Flags().GetString("study"); studyID != "" {
		files, err := s.FilesForStudy(ctx, studyID)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(w, f)
		}
		return nil
	}

	paths, err := scan.Scan(cfg.Scan)
	if err != nil {
		return err
	}
	results, _, err := batch.New(cfg.Batch, slog.Default()).Run(ctx, paths, w)
	if err != nil {
		return err
	}

	summary, err := s.Ingest(ctx, results, w)
	if err != nil {
		return err
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "index %s: %d files, %d studies, %d robs, %d references\n",
		cfg.Store.DBPath, counts.Files, counts.Studies, counts.Robs, counts.References)

	if summary.Failed > 0 || summary.Skipped > 0 {
		return fmt.Errorf("%d document(s) not indexed", summary.Failed+summary.Skipped)
	}
	return nil
}

func init() {
	indexCmd.Flags().String("study", "", "list the review files containing this study id")
	rootCmd.AddCommand(indexCmd)
}
