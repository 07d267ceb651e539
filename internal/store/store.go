// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps an optional SQLite index of extracted study records so
// a corpus can be queried with plain SQL after a run.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/rob-extract/internal/batch"
	"github.com/pdiddy/rob-extract/pkg/types"
)

const defaultDBPath = "index/rob.db"

// Store manages the record index database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at cfg.DBPath and creates the schema
// if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			file TEXT PRIMARY KEY,
			indexed_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS studies (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL REFERENCES files(file) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			study_id TEXT NOT NULL,
			study_type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS robs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL REFERENCES files(file) ON DELETE CASCADE,
			study_id TEXT NOT NULL,
			rob_id TEXT NOT NULL,
			rob_name TEXT,
			rob_description TEXT,
			group_id TEXT,
			group_name TEXT,
			result TEXT NOT NULL,
			result_description TEXT,
			modified TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS refs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL REFERENCES files(file) ON DELETE CASCADE,
			study_id TEXT NOT NULL,
			type TEXT NOT NULL,
			authors TEXT,
			title TEXT,
			source TEXT,
			year TEXT,
			volume TEXT,
			issue TEXT,
			pages TEXT,
			country TEXT,
			identifiers TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_studies_study_id ON studies(study_id)`,
		`CREATE INDEX IF NOT EXISTS idx_robs_study_id ON robs(study_id)`,
		`CREATE INDEX IF NOT EXISTS idx_robs_criterion ON robs(rob_id, group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refs_study_id ON refs(study_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of documents considered.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest writes the records of every successfully extracted document,
// replacing whatever the index held for that file. Each file is written in
// its own transaction. Failed results are skipped and leave any earlier rows
// for that file in place. Progress lines are written to w.
func (s *Store) Ingest(ctx context.Context, results []batch.Result, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary
	now := time.Now().UTC().Format(time.RFC3339Nano)

	for _, r := range results {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if r.Failed() {
			fmt.Fprintf(w, "skipped %s: %v\n", r.Path, r.Err)
			summary.Skipped++
			continue
		}

		existed, err := s.ingestFile(ctx, r.Path, r.Studies, now)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", r.Path, err)
			summary.Failed++
			continue
		}

		if existed {
			fmt.Fprintf(w, "updated %s (%d studies)\n", r.Path, len(r.Studies))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d studies)\n", r.Path, len(r.Studies))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, file string, studies []types.StudyRecord, now string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file = ?`, file)
	if err != nil {
		return false, fmt.Errorf("deleting old rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting old rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (file, indexed_at) VALUES (?, ?)`, file, now,
	); err != nil {
		return false, fmt.Errorf("inserting file: %w", err)
	}

	studyStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO studies (file, position, study_id, study_type) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing study insert: %w", err)
	}
	defer studyStmt.Close()

	robStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO robs (file, study_id, rob_id, rob_name, rob_description, group_id, group_name,
			result, result_description, modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing rob insert: %w", err)
	}
	defer robStmt.Close()

	refStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO refs (file, study_id, type, authors, title, source, year, volume, issue, pages,
			country, identifiers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing reference insert: %w", err)
	}
	defer refStmt.Close()

	for i, st := range studies {
		if _, err := studyStmt.ExecContext(ctx, file, i, st.StudyID, st.StudyType); err != nil {
			return false, fmt.Errorf("inserting study %s: %w", st.StudyID, err)
		}
		for _, e := range st.RiskOfBias {
			if _, err := robStmt.ExecContext(ctx,
				file, e.StudyID, e.RobID, e.RobName, e.RobDescription, e.GroupID, e.GroupName,
				e.Result, e.ResultDescription, e.Modified,
			); err != nil {
				return false, fmt.Errorf("inserting rob %s/%s: %w", st.StudyID, e.RobID, err)
			}
		}
		for _, ref := range st.References {
			idsJSON, err := encodeIdentifiers(ref.Identifiers)
			if err != nil {
				return false, fmt.Errorf("encoding identifiers for %s: %w", st.StudyID, err)
			}
			if _, err := refStmt.ExecContext(ctx,
				file, st.StudyID, ref.Type, ref.Authors, ref.Title, ref.Source, ref.Year,
				ref.Volume, ref.Issue, ref.Pages, ref.Country, idsJSON,
			); err != nil {
				return false, fmt.Errorf("inserting reference for %s: %w", st.StudyID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing %s: %w", file, err)
	}
	return n > 0, nil
}

// encodeIdentifiers renders identifiers as a JSON array for the refs table.
// No identifiers is stored as "[]".
func encodeIdentifiers(ids []types.Identifier) (string, error) {
	if ids == nil {
		ids = []types.Identifier{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Counts holds row counts of the index tables.
type Counts struct {
	Files      int `json:"files" yaml:"files"`
	Studies    int `json:"studies" yaml:"studies"`
	Robs       int `json:"robs" yaml:"robs"`
	References int `json:"references" yaml:"references"`
}

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dst   *int
	}{
		{"files", &c.Files},
		{"studies", &c.Studies},
		{"robs", &c.Robs},
		{"refs", &c.References},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+t.table).Scan(t.dst); err != nil {
			return Counts{}, fmt.Errorf("counting %s: %w", t.table, err)
		}
	}
	return c, nil
}

// FilesForStudy returns the distinct review files that contain studyID,
// sorted by path.
func (s *Store) FilesForStudy(ctx context.Context, studyID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT file FROM studies WHERE study_id = ? ORDER BY file`, studyID)
	if err != nil {
		return nil, fmt.Errorf("querying files for %s: %w", studyID, err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
