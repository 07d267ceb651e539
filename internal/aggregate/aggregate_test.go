// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// --- test helpers ---

func rob(studyID, robID, robName, groupID, groupName, result string) types.RiskOfBiasEntry {
	return types.RiskOfBiasEntry{
		StudyID: studyID, RobID: robID, RobName: robName,
		GroupID: groupID, GroupName: groupName, Result: result,
	}
}

func study(file, id string, robs ...types.RiskOfBiasEntry) types.StudyRecord {
	return types.StudyRecord{SourceFile: file, StudyID: id, StudyType: "PUB", RiskOfBias: robs}
}

func withRefs(s types.StudyRecord, refs ...types.ReferenceEntry) types.StudyRecord {
	s.References = refs
	return s
}

var fixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// --- Coverage ---

func TestComputeCoverage(t *testing.T) {
	doi := types.ReferenceEntry{Type: "JOURNAL_ARTICLE", Identifiers: []types.Identifier{{"type": "DOI", "value": "10.1/a"}}}
	bare := types.ReferenceEntry{Type: "OTHER", Identifiers: []types.Identifier{}}

	studies := []types.StudyRecord{
		withRefs(study("a.rm5", "STD-1"), doi, doi, bare),
		withRefs(study("b.rm5", "STD-1"), doi),
		withRefs(study("b.rm5", "STD-2"), bare),
		study("b.rm5", "STD-3"),
	}

	got := ComputeCoverage(studies)
	assert.Equal(t, Coverage{
		TotalStudies:              4,
		DistinctStudyIDs:          3,
		ReferencesWithIdentifiers: 3,
		StudiesWithIdentifiers:    1,
	}, got)
}

func TestComputeCoverageEmpty(t *testing.T) {
	assert.Equal(t, Coverage{}, ComputeCoverage(nil))
}

// --- Catalog ---

func TestBuildCatalog(t *testing.T) {
	studies := []types.StudyRecord{
		study("a.rm5", "STD-1",
			rob("STD-1", "QIT-02", "Blinding", "G1", "Subjective", "YES"),
			rob("STD-1", "QIT-01", "Random sequence generation", "", "", "YES"),
		),
		study("b.rm5", "STD-2",
			rob("STD-2", "QIT-02", "Blinding of outcome assessment", "G1", "Subjective", "NO"),
			rob("STD-2", "QIT-02", "Blinding", "G1", "Objective", "NO"),
			rob("STD-2", "QIT-01", "Random sequence generation", "", "", "NO"),
		),
	}

	got := BuildCatalog(studies)
	assert.Equal(t, []CatalogEntry{
		{RobID: "QIT-01", GroupID: "", RobNames: []string{"Random sequence generation"}, GroupNames: []string{""}},
		{
			RobID: "QIT-02", GroupID: "G1",
			RobNames:   []string{"Blinding", "Blinding of outcome assessment"},
			GroupNames: []string{"Subjective", "Objective"},
		},
	}, got)

	assert.Equal(t, [][]string{
		{"QIT-01", "", "Random sequence generation", ""},
		{"QIT-02", "G1", "Blinding|Blinding of outcome assessment", "Subjective|Objective"},
	}, CatalogRecords(got))

	inconsistent := Inconsistent(got)
	require.Len(t, inconsistent, 1)
	assert.Equal(t, "QIT-02", inconsistent[0].RobID)
}

// --- Report ---

func TestCollectCrossDocumentDiscrepancy(t *testing.T) {
	studies := []types.StudyRecord{
		study("a.rm5", "STD-1",
			rob("STD-1", "QIT-01", "Random sequence generation", "", "", "YES"),
			rob("STD-1", "QIT-02", "Blinding", "G1", "Blinding", "NO"),
		),
		study("a.rm5", "STD-2", rob("STD-2", "QIT-01", "Random sequence generation", "", "", "YES")),
		study("b.rm5", "STD-1",
			rob("STD-1", "QIT-01", "Random sequence generation", "", "", "YES"),
			rob("STD-1", "QIT-02", "Blinding", "G1", "Blinding", "YES"),
		),
	}

	r := NewReport("run-1", fixedNow)
	r.Collect(studies)

	assert.Equal(t, 1, r.MultiReviewStudies)
	require.Len(t, r.Studies, 1)
	d := r.Studies[0]
	assert.Equal(t, "STD-1", d.StudyID)
	assert.Equal(t, []string{"a.rm5", "b.rm5"}, d.Reviews)
	assert.Equal(t, types.CriterionKey{RobID: "QIT-02", RobName: "Blinding", GroupID: "G1", GroupName: "Blinding"}, d.Criterion)
	assert.Equal(t, []ResultEntry{
		{File: "a.rm5", Result: "NO"},
		{File: "b.rm5", Result: "YES"},
	}, d.Results)
	assert.Equal(t, 1, r.StudiesWithDiscrepancies())
}

func TestCollectAgreeingReviews(t *testing.T) {
	studies := []types.StudyRecord{
		study("a.rm5", "STD-1", rob("STD-1", "QIT-01", "RSG", "", "", "YES")),
		study("b.rm5", "STD-1", rob("STD-1", "QIT-01", "RSG", "", "", "YES")),
		study("c.rm5", "STD-1"),
	}
	r := NewReport("run-1", fixedNow)
	r.Collect(studies)

	assert.Equal(t, 1, r.MultiReviewStudies)
	assert.Empty(t, r.Studies)
	assert.Equal(t, 0, r.StudiesWithDiscrepancies())
}

func TestCollectSingleDocumentIsNotCompared(t *testing.T) {
	// Conflicting entries inside one review are not a cross-document discrepancy.
	studies := []types.StudyRecord{
		study("a.rm5", "STD-1",
			rob("STD-1", "QIT-01", "RSG", "", "", "YES"),
			rob("STD-1", "QIT-01", "RSG", "", "", "NO"),
		),
	}
	r := NewReport("run-1", fixedNow)
	r.Collect(studies)

	assert.Equal(t, 0, r.MultiReviewStudies)
	assert.Empty(t, r.Studies)
}

func TestCollectKeysComeFromFirstCopy(t *testing.T) {
	// QIT-03 only exists in the second review, so it is never compared.
	studies := []types.StudyRecord{
		study("a.rm5", "STD-1", rob("STD-1", "QIT-01", "RSG", "", "", "YES")),
		study("b.rm5", "STD-1",
			rob("STD-1", "QIT-01", "RSG", "", "", "YES"),
			rob("STD-1", "QIT-03", "Attrition", "", "", "NO"),
		),
		study("c.rm5", "STD-1", rob("STD-1", "QIT-03", "Attrition", "", "", "YES")),
	}
	r := NewReport("run-1", fixedNow)
	r.Collect(studies)

	assert.Equal(t, 1, r.MultiReviewStudies)
	assert.Empty(t, r.Studies)
}

func TestReportWriteFileJSON(t *testing.T) {
	r := NewReport("run-1", fixedNow)
	r.Add(Discrepancy{
		StudyID:   "STD-1",
		Reviews:   []string{"a.rm5", "b.rm5"},
		Criterion: types.CriterionKey{RobID: "QIT-01"},
		Results:   []ResultEntry{{File: "a.rm5", Result: "YES"}, {File: "b.rm5", Result: "NO"}},
	})
	r.MultiReviewStudies = 1

	path := filepath.Join(t.TempDir(), "out", "studies_with_multiple_reviews.json")
	require.NoError(t, r.WriteFile(path, types.ReportJSON))

	got, err := ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	// Writing again replaces rather than appends.
	empty := NewReport("run-2", fixedNow)
	require.NoError(t, empty.WriteFile(path, types.ReportJSON))
	got, err = ReadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Empty(t, got.Studies)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"studies": []`)
}

func TestReportWriteFileYAML(t *testing.T) {
	r := NewReport("run-1", fixedNow)
	r.Add(Discrepancy{StudyID: "STD-1", Reviews: []string{"a.rm5", "b.rm5"}})

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, r.WriteFile(path, types.ReportYAML))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	require.Len(t, got.Studies, 1)
	assert.Equal(t, []string{"a.rm5", "b.rm5"}, got.Studies[0].Reviews)
}

func TestReportUnsupportedFormat(t *testing.T) {
	_, err := NewReport("x", fixedNow).Marshal(types.ReportFormat("xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
}

// --- Summary ---

func TestSummarizeAndPrint(t *testing.T) {
	r := NewReport("run-1", fixedNow)
	r.MultiReviewStudies = 2
	r.Add(Discrepancy{StudyID: "STD-1"})
	r.Add(Discrepancy{StudyID: "STD-1"})
	r.Add(Discrepancy{StudyID: "STD-2"})

	catalog := []CatalogEntry{
		{RobID: "QIT-01", RobNames: []string{"a", "b"}, GroupNames: []string{""}},
		{RobID: "QIT-02", RobNames: []string{"c"}, GroupNames: []string{""}},
	}
	s := Summarize(Coverage{TotalStudies: 10, DistinctStudyIDs: 8}, catalog, r, 1)
	assert.Equal(t, 2, s.StudiesWithDiscrepancies)
	assert.Equal(t, 1, s.InconsistentCriteria)

	var buf bytes.Buffer
	s.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Total studies:")
	assert.Contains(t, out, "Studies with discrepancies:    2")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 8)
}
