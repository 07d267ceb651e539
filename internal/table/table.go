// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package table flattens study records into fixed-column tables. Each child
// record (risk-of-bias entry or reference) becomes one row carrying its
// parent study's file, id and study type.
package table

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/rob-extract/internal/extract"
	"github.com/pdiddy/rob-extract/pkg/types"
)

// Kind selects which child records of a study become rows.
type Kind string

const (
	KindRobs       Kind = "robs"
	KindReferences Kind = "references"
)

// RobColumns is the default column order of the risk-of-bias table.
var RobColumns = []string{
	"file", "id", "modified", "result", "result_description",
	"rob_name", "rob_id", "rob_description", "group_id", "group_name",
}

// ReferenceColumns is the default column order of the references table.
var ReferenceColumns = []string{
	"file", "id", "study_type", "type", "authors", "title",
	"source", "year", "vl", "no", "pg", "country", "identifiers",
}

// DefaultColumns returns the default column order for kind.
func DefaultColumns(kind Kind) ([]string, error) {
	switch kind {
	case KindRobs:
		return RobColumns, nil
	case KindReferences:
		return ReferenceColumns, nil
	default:
		return nil, fmt.Errorf("unknown row kind %q: use robs or references", kind)
	}
}

func studyFields(s types.StudyRecord) map[string]string {
	return map[string]string{
		"file":       s.SourceFile,
		"id":         s.StudyID,
		"study_type": s.StudyType,
	}
}

// RobRow returns a fresh row for one risk-of-bias entry merged with its
// parent study's fields. Neither argument is modified.
func RobRow(s types.StudyRecord, e types.RiskOfBiasEntry) map[string]string {
	row := map[string]string{
		"study_id":           e.StudyID,
		"modified":           e.Modified,
		"result":             e.Result,
		"result_description": e.ResultDescription,
		"group_id":           e.GroupID,
		"group_name":         e.GroupName,
		"rob_id":             e.RobID,
		"rob_name":           e.RobName,
		"rob_description":    e.RobDescription,
	}
	for k, v := range studyFields(s) {
		row[k] = v
	}
	return row
}

// ReferenceRow returns a fresh row for one reference merged with its parent
// study's fields. Identifiers are rendered with extract.FormatIdentifiers.
func ReferenceRow(s types.StudyRecord, r types.ReferenceEntry) map[string]string {
	row := map[string]string{
		"type":        r.Type,
		"authors":     r.Authors,
		"title":       r.Title,
		"source":      r.Source,
		"year":        r.Year,
		"vl":          r.Volume,
		"no":          r.Issue,
		"pg":          r.Pages,
		"country":     r.Country,
		"identifiers": extract.FormatIdentifiers(r.Identifiers),
	}
	for k, v := range studyFields(s) {
		row[k] = v
	}
	return row
}

// Rows flattens studies into rows of the given kind, in study order and then
// child order.
func Rows(studies []types.StudyRecord, kind Kind) ([]map[string]string, error) {
	var rows []map[string]string
	switch kind {
	case KindRobs:
		for _, s := range studies {
			for _, e := range s.RiskOfBias {
				rows = append(rows, RobRow(s, e))
			}
		}
	case KindReferences:
		for _, s := range studies {
			for _, r := range s.References {
				rows = append(rows, ReferenceRow(s, r))
			}
		}
	default:
		return nil, fmt.Errorf("unknown row kind %q: use robs or references", kind)
	}
	return rows, nil
}

// Records projects rows onto columns. Fields not named in columns are
// dropped; columns a row does not carry are rendered empty.
func Records(rows []map[string]string, columns []string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, len(columns))
		for j, col := range columns {
			rec[j] = row[col]
		}
		out[i] = rec
	}
	return out
}

// Write writes a header and one row per child record of kind to w. A nil
// columns slice uses the default order for kind.
func Write(w io.Writer, studies []types.StudyRecord, kind Kind, columns []string) error {
	if columns == nil {
		cols, err := DefaultColumns(kind)
		if err != nil {
			return err
		}
		columns = cols
	}
	rows, err := Rows(studies, kind)
	if err != nil {
		return err
	}
	return WriteRecords(w, columns, Records(rows, columns))
}

// WriteFile writes the table for kind to path, creating parent directories.
func WriteFile(path string, studies []types.StudyRecord, kind Kind, columns []string) error {
	return writeFile(path, func(w io.Writer) error {
		return Write(w, studies, kind, columns)
	})
}

// WriteRecordsFile writes header and records to path, creating parent
// directories.
func WriteRecordsFile(path string, header []string, records [][]string) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRecords(w, header, records)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteRecords writes header and records with every field quoted. Line
// breaks inside fields are written as LF.
func WriteRecords(w io.Writer, header []string, records [][]string) error {
	bw := bufio.NewWriter(w)
	if err := writeQuoted(bw, header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writeQuoted(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// lineBreaks folds CR LF and lone CR into LF. encoding/csv reads a CR LF
// inside a quoted field back as LF, so fields are written that way already.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeQuoted writes one record in RFC 4180 form with every field quoted.
// encoding/csv only quotes fields that need it.
func writeQuoted(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(lineBreaks.Replace(f), `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// ReadRows reads a table written by Write and returns one map per data row
// keyed by the header. Line breaks inside fields come back as LF, as Write
// stored them.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
