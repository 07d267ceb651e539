// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// ResultEntry is one judgment contributing to a discrepancy.
type ResultEntry struct {
	File              string `json:"file" yaml:"file"`
	Result            string `json:"result" yaml:"result"`
	ResultDescription string `json:"result_description" yaml:"result_description"`
	Modified          string `json:"modified" yaml:"modified"`
}

// Discrepancy records divergent results for one study and criterion.
type Discrepancy struct {
	StudyID   string             `json:"study_id" yaml:"study_id"`
	Reviews   []string           `json:"reviews" yaml:"reviews"`
	Criterion types.CriterionKey `json:"criterion" yaml:"criterion"`
	Results   []ResultEntry      `json:"results" yaml:"results"`
}

// Report accumulates the discrepancies of one run. It is built in memory
// and written once with WriteFile.
type Report struct {
	RunID              string        `json:"run_id" yaml:"run_id"`
	GeneratedAt        time.Time     `json:"generated_at" yaml:"generated_at"`
	MultiReviewStudies int           `json:"multi_review_studies" yaml:"multi_review_studies"`
	Studies            []Discrepancy `json:"studies" yaml:"studies"`
}

// NewReport returns an empty report stamped with runID and now.
func NewReport(runID string, now time.Time) *Report {
	return &Report{
		RunID:       runID,
		GeneratedAt: now.UTC(),
		Studies:     []Discrepancy{},
	}
}

// Add appends a discrepancy.
func (r *Report) Add(d Discrepancy) {
	r.Studies = append(r.Studies, d)
}

// StudiesWithDiscrepancies returns the number of distinct study ids with at
// least one discrepancy.
func (r *Report) StudiesWithDiscrepancies() int {
	ids := make(map[string]bool)
	for _, d := range r.Studies {
		ids[d.StudyID] = true
	}
	return len(ids)
}

// Collect groups studies by id and adds a discrepancy for every criterion
// whose results differ across the documents that contain the study.
//
// Only ids appearing in more than one document are compared. The criterion
// keys (rob_id, rob_name, group_id, group_name) come from the first
// document's copy of the study; for each key the matching entries of every
// copy are gathered and compared by result.
func (r *Report) Collect(studies []types.StudyRecord) {
	var order []string
	byID := make(map[string][]types.StudyRecord)
	for _, s := range studies {
		if _, ok := byID[s.StudyID]; !ok {
			order = append(order, s.StudyID)
		}
		byID[s.StudyID] = append(byID[s.StudyID], s)
	}

	for _, id := range order {
		copies := byID[id]
		reviews := distinctFiles(copies)
		if len(reviews) < 2 {
			continue
		}
		r.MultiReviewStudies++

		for _, key := range criterionKeys(copies[0].RiskOfBias) {
			var results []ResultEntry
			distinct := make(map[string]bool)
			for _, c := range copies {
				for _, e := range c.RiskOfBias {
					if e.Key() != key {
						continue
					}
					distinct[e.Result] = true
					results = append(results, ResultEntry{
						File:              c.SourceFile,
						Result:            e.Result,
						ResultDescription: e.ResultDescription,
						Modified:          e.Modified,
					})
				}
			}
			if len(distinct) > 1 {
				r.Add(Discrepancy{
					StudyID:   id,
					Reviews:   reviews,
					Criterion: key,
					Results:   results,
				})
			}
		}
	}
}

func distinctFiles(copies []types.StudyRecord) []string {
	seen := make(map[string]bool)
	var files []string
	for _, c := range copies {
		if !seen[c.SourceFile] {
			seen[c.SourceFile] = true
			files = append(files, c.SourceFile)
		}
	}
	return files
}

func criterionKeys(entries []types.RiskOfBiasEntry) []types.CriterionKey {
	seen := make(map[types.CriterionKey]bool)
	var keys []types.CriterionKey
	for _, e := range entries {
		k := e.Key()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// Marshal encodes the report in the given format.
func (r *Report) Marshal(format types.ReportFormat) ([]byte, error) {
	switch format {
	case types.ReportJSON, "":
		data, err := json.MarshalIndent(r, "", "    ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case types.ReportYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q: use json or yaml", format)
	}
}

// WriteFile writes the report to path, replacing any existing file.
func (r *Report) WriteFile(path string, format types.ReportFormat) error {
	data, err := r.Marshal(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report written by WriteFile in JSON format.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
