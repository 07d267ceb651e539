// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rob-extract CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the rob-extract CLI.
var rootCmd = &cobra.Command{
	Use:   "rob-extract",
	Short: "Extract risk-of-bias judgments from Cochrane review documents",
	Long: `rob-extract reads a corpus of Cochrane reviews in RevMan 5 XML format and
flattens their risk-of-bias judgments and study references into tables.

It also catalogs how each bias criterion is named across the corpus and
reports studies that different reviews judged differently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(viper.GetString("log_level"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./rob-extract.yaml or ~/.config/rob-extract/rob-extract.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("reviews-dir", "reviews", "root directory of the review corpus")
	pf.String("suffix", ".rm5", "filename suffix of review documents")
	pf.String("marker", "publication", "substring a document path must contain (empty keeps all)")
	pf.Int("workers", 8, "number of documents extracted in parallel")
	pf.String("db", "index/rob.db", "SQLite record index path")

	bindFlags(pf, map[string]string{
		"log_level":        "log-level",
		"scan.reviews_dir": "reviews-dir",
		"scan.suffix":      "suffix",
		"scan.marker":      "marker",
		"batch.workers":    "workers",
		"store.db_path":    "db",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rob-extract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rob-extract"))
		}
	}

	viper.SetEnvPrefix("ROB_EXTRACT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging installs a text slog handler on stderr at the given level.
func initLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
