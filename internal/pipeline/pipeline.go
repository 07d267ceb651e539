// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one full extraction over a review corpus: scan,
// parallel extraction, table output, aggregation and the discrepancy
// report.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/rob-extract/internal/aggregate"
	"github.com/pdiddy/rob-extract/internal/batch"
	"github.com/pdiddy/rob-extract/internal/scan"
	"github.com/pdiddy/rob-extract/internal/table"
	"github.com/pdiddy/rob-extract/pkg/types"
)

// Outcome is everything a run produced.
type Outcome struct {
	RunID   string
	Results []batch.Result
	Batch   batch.Summary
	Summary aggregate.Summary
	Report  *aggregate.Report
}

// Failures returns the documents that failed or never ran.
func (o Outcome) Failures() []batch.Result {
	return batch.Failures(o.Results)
}

// Runner executes pipeline runs.
type Runner struct {
	cfg     types.PipelineConfig
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	options []batch.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock fixes the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRunID fixes the report run id.
func WithRunID(id string) Option {
	return func(r *Runner) { r.newID = func() string { return id } }
}

// WithBatchOptions passes options through to the batch mapper.
func WithBatchOptions(opts ...batch.Option) Option {
	return func(r *Runner) { r.options = append(r.options, opts...) }
}

// New returns a Runner for cfg. A nil logger uses slog.Default.
func New(cfg types.PipelineConfig, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run scans the corpus, extracts every document and writes the outputs.
//
// Documents that fail are left out of the outputs and listed in the
// Outcome; the run itself only returns an error when an output cannot be
// written or when fail-fast mode aborted the batch. Progress lines and the
// console summary are written to w.
func (r *Runner) Run(ctx context.Context, w io.Writer) (Outcome, error) {
	out := Outcome{RunID: r.newID()}
	log := r.logger.With("run_id", out.RunID)

	paths, err := scan.Scan(r.cfg.Scan)
	if err != nil {
		return out, err
	}
	log.Info("scanned corpus", "root", r.cfg.Scan.ReviewsDir, "documents", len(paths))
	fmt.Fprintf(w, "found %d review documents\n", len(paths))

	mapper := batch.New(r.cfg.Batch, log, r.options...)
	results, bsum, err := mapper.Run(ctx, paths, w)
	out.Results, out.Batch = results, bsum
	if err != nil {
		return out, err
	}

	studies := batch.Studies(results)
	oc := r.cfg.Output

	if err := table.WriteFile(r.outPath(oc.RobsFile), studies, table.KindRobs, nil); err != nil {
		return out, fmt.Errorf("writing robs table: %w", err)
	}
	if err := table.WriteFile(r.outPath(oc.ReferencesFile), studies, table.KindReferences, nil); err != nil {
		return out, fmt.Errorf("writing references table: %w", err)
	}

	catalog := aggregate.BuildCatalog(studies)
	if err := table.WriteRecordsFile(r.outPath(oc.GroupsFile), aggregate.CatalogColumns, aggregate.CatalogRecords(catalog)); err != nil {
		return out, fmt.Errorf("writing group catalog: %w", err)
	}
	for _, e := range aggregate.Inconsistent(catalog) {
		log.Warn("criterion named inconsistently",
			"rob_id", e.RobID, "group_id", e.GroupID,
			"rob_names", e.RobNames, "group_names", e.GroupNames)
	}

	report := aggregate.NewReport(out.RunID, r.now())
	report.Collect(studies)
	if err := report.WriteFile(r.outPath(oc.ReportFile), oc.ReportFormat); err != nil {
		return out, fmt.Errorf("writing discrepancy report: %w", err)
	}
	out.Report = report

	if oc.Workbook != "" {
		if err := writeWorkbook(r.outPath(oc.Workbook), studies, catalog); err != nil {
			return out, err
		}
	}

	out.Summary = aggregate.Summarize(aggregate.ComputeCoverage(studies), catalog, report, bsum.Failed+bsum.NotRun)
	fmt.Fprintln(w)
	out.Summary.Print(w)
	for _, f := range out.Failures() {
		fmt.Fprintf(w, "  %s: %v\n", f.Path, f.Err)
	}
	return out, nil
}

// outPath resolves name against the output directory unless it is absolute.
func (r *Runner) outPath(name string) string {
	if filepath.IsAbs(name) || r.cfg.Output.Dir == "" {
		return name
	}
	return filepath.Join(r.cfg.Output.Dir, name)
}

func writeWorkbook(path string, studies []types.StudyRecord, catalog []aggregate.CatalogEntry) error {
	var sheets []table.Sheet
	for _, kind := range []table.Kind{table.KindRobs, table.KindReferences} {
		rows, err := table.Rows(studies, kind)
		if err != nil {
			return err
		}
		cols, err := table.DefaultColumns(kind)
		if err != nil {
			return err
		}
		sheets = append(sheets, table.Sheet{
			Name:    string(kind),
			Header:  cols,
			Records: table.Records(rows, cols),
		})
	}
	sheets = append(sheets, table.Sheet{
		Name:    "rob_groups",
		Header:  aggregate.CatalogColumns,
		Records: aggregate.CatalogRecords(catalog),
	})

	if err := table.WriteWorkbook(path, sheets); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
