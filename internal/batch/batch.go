// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch applies the extractor to many review documents with a
// bounded worker pool. Documents are independent; results come back in input
// order whatever order the workers finish in.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/rob-extract/internal/extract"
	"github.com/pdiddy/rob-extract/pkg/types"
)

const defaultWorkers = 8

// ErrNotRun marks documents that were never started because the batch was
// aborted or cancelled first.
var ErrNotRun = errors.New("not run: batch aborted")

// ExtractFunc turns one document path into its study records.
type ExtractFunc func(path string) ([]types.StudyRecord, error)

// Result is the outcome for one document.
type Result struct {
	Path    string
	Studies []types.StudyRecord
	Err     error
}

// Failed reports whether the document produced no records because of an error.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Summary holds counts from a batch run.
type Summary struct {
	Extracted int
	Failed    int
	NotRun    int
	Studies   int
}

// Total returns the number of documents submitted.
func (s Summary) Total() int {
	return s.Extracted + s.Failed + s.NotRun
}

// HasFailures reports whether any document failed or was not run.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.NotRun > 0
}

// Mapper runs an ExtractFunc over a list of documents.
type Mapper struct {
	extract  ExtractFunc
	logger   *slog.Logger
	workers  int
	failFast bool
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithExtractFunc replaces extract.ExtractFile. Tests use it to inject
// failures and delays.
func WithExtractFunc(fn ExtractFunc) Option {
	return func(m *Mapper) {
		if fn != nil {
			m.extract = fn
		}
	}
}

// New returns a Mapper configured from cfg. A nil logger uses slog.Default.
func New(cfg types.BatchConfig, logger *slog.Logger, opts ...Option) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{
		extract:  extract.ExtractFile,
		logger:   logger,
		workers:  cfg.Workers,
		failFast: cfg.FailFast,
	}
	if m.workers <= 0 {
		m.workers = defaultWorkers
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run extracts every path and returns one Result per path in input order.
//
// By default a failing document is recorded in its Result and the batch
// continues. With FailFast the first failure stops scheduling, in-flight
// documents finish, the rest are marked ErrNotRun, and the failure is
// returned. Cancelling ctx behaves the same way and returns ctx.Err().
// Progress lines are written to w.
func (m *Mapper) Run(ctx context.Context, paths []string, w io.Writer) ([]Result, Summary, error) {
	results := make([]Result, len(paths))
	started := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	var mu sync.Mutex // serializes writes to w

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{Path: path, Err: ErrNotRun}
				return nil
			}
			start := time.Now()
			studies, err := m.extract(path)
			results[i] = Result{Path: path, Studies: studies, Err: err}

			mu.Lock()
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			} else {
				fmt.Fprintf(w, "extracted %s (%d studies)\n", path, len(studies))
			}
			mu.Unlock()

			if err != nil {
				m.logger.Warn("extraction failed", "path", path, "error", err)
				if m.failFast {
					return fmt.Errorf("extracting %s: %w", path, err)
				}
				return nil
			}
			m.logger.Debug("extracted", "path", path, "studies", len(studies), "elapsed_ms", time.Since(start).Milliseconds())
			return nil
		})
	}

	waitErr := g.Wait()

	var summary Summary
	for i := range results {
		if !started[i] {
			results[i] = Result{Path: paths[i], Err: ErrNotRun}
		}
		if errors.Is(results[i].Err, ErrNotRun) {
			summary.NotRun++
			continue
		}
		if results[i].Failed() {
			summary.Failed++
			continue
		}
		summary.Extracted++
		summary.Studies += len(results[i].Studies)
	}

	if waitErr != nil {
		return results, summary, waitErr
	}
	if err := ctx.Err(); err != nil {
		return results, summary, err
	}
	return results, summary, nil
}

// Studies concatenates the records of every successful result, preserving
// input order and per-document record order.
func Studies(results []Result) []types.StudyRecord {
	var out []types.StudyRecord
	for _, r := range results {
		if r.Failed() {
			continue
		}
		out = append(out, r.Studies...)
	}
	return out
}

// Failures returns the failed and not-run results in input order.
func Failures(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
