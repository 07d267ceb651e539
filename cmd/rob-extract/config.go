// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// bindFlags binds each viper key to the named flag. Keys are bound once so
// a flag shared by several commands must live on a common parent.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// pipelineConfig assembles the run configuration from flags, environment
// and config file, in viper's precedence order.
func pipelineConfig() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	cfg.Scan.ReviewsDir = viper.GetString("scan.reviews_dir")
	cfg.Scan.Suffix = viper.GetString("scan.suffix")
	cfg.Scan.Marker = viper.GetString("scan.marker")

	cfg.Batch.Workers = viper.GetInt("batch.workers")
	cfg.Batch.FailFast = viper.GetBool("batch.fail_fast")

	setIfSet(&cfg.Output.Dir, "output.dir")
	setIfSet(&cfg.Output.RobsFile, "output.robs_file")
	setIfSet(&cfg.Output.ReferencesFile, "output.references_file")
	setIfSet(&cfg.Output.GroupsFile, "output.groups_file")
	setIfSet(&cfg.Output.ReportFile, "output.report_file")
	if f := viper.GetString("output.report_format"); f != "" {
		cfg.Output.ReportFormat = types.ReportFormat(f)
	}
	cfg.Output.Workbook = viper.GetString("output.workbook")

	cfg.Store.DBPath = viper.GetString("store.db_path")
	return cfg
}

func setIfSet(dst *string, key string) {
	if v := viper.GetString(key); v != "" {
		*dst = v
	}
}
