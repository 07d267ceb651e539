// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rob-extract/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the review documents the extractor would read",
	Long: `Scan walks the reviews directory and prints every file that carries the
configured suffix and whose path contains the marker substring.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	paths, err := scan.Scan(cfg.Scan)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d review documents\n", len(paths))
	return nil
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
