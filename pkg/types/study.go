// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the rob-extract pipeline:
// the per-study records produced by the extractor and the configuration
// structs for each stage.
package types

// StudyRecord identifies one study as referenced inside one review document.
// The same StudyID may appear in several documents; SourceFile is provenance,
// not a key.
type StudyRecord struct {
	// SourceFile is the path of the review document the study was read from.
	SourceFile string `json:"file" yaml:"file"`

	// StudyID is unique within a document, not across the corpus.
	StudyID string `json:"id" yaml:"id"`

	// StudyType is the categorical data-source tag (DATA_SOURCE attribute).
	StudyType string `json:"study_type" yaml:"study_type"`

	// RiskOfBias lists the bias judgments for this study in document order.
	RiskOfBias []RiskOfBiasEntry `json:"robs" yaml:"robs"`

	// References lists the bibliographic citations for this study in document order.
	References []ReferenceEntry `json:"references" yaml:"references"`
}

// RiskOfBiasEntry is one judgment about one bias criterion for one study,
// optionally scoped to a group within the study.
type RiskOfBiasEntry struct {
	StudyID  string `json:"study_id" yaml:"study_id"`
	Modified string `json:"modified" yaml:"modified"`

	// Result is the categorical judgment code (e.g. "YES", "NO", "UNKNOWN").
	Result string `json:"result" yaml:"result"`

	// ResultDescription is the text of the last paragraph under the entry.
	ResultDescription string `json:"result_description" yaml:"result_description"`

	// GroupID and GroupName are empty when the judgment is study-wide.
	GroupID   string `json:"group_id" yaml:"group_id"`
	GroupName string `json:"group_name" yaml:"group_name"`

	RobID          string `json:"rob_id" yaml:"rob_id"`
	RobName        string `json:"rob_name" yaml:"rob_name"`
	RobDescription string `json:"rob_description" yaml:"rob_description"`
}

// CriterionKey identifies the bias criterion and group a judgment belongs to.
type CriterionKey struct {
	RobID     string `json:"rob_id" yaml:"rob_id"`
	RobName   string `json:"rob_name" yaml:"rob_name"`
	GroupID   string `json:"group_id" yaml:"group_id"`
	GroupName string `json:"group_name" yaml:"group_name"`
}

// Key returns the criterion key of the entry.
func (e RiskOfBiasEntry) Key() CriterionKey {
	return CriterionKey{
		RobID:     e.RobID,
		RobName:   e.RobName,
		GroupID:   e.GroupID,
		GroupName: e.GroupName,
	}
}

// ReferenceEntry is one bibliographic citation attached to a study.
// Text fields are empty strings when the source element is absent.
type ReferenceEntry struct {
	// Type is the citation role (e.g. "PRIMARY", "SECONDARY").
	Type    string `json:"type" yaml:"type"`
	Authors string `json:"authors" yaml:"authors"`
	Title   string `json:"title" yaml:"title"`
	Source  string `json:"source" yaml:"source"`
	Year    string `json:"year" yaml:"year"`
	Volume  string `json:"vl" yaml:"vl"`
	Issue   string `json:"no" yaml:"no"`
	Pages   string `json:"pg" yaml:"pg"`
	Country string `json:"country" yaml:"country"`

	Identifiers []Identifier `json:"identifiers" yaml:"identifiers"`
}

// Identifier maps an external identifier's lower-cased attribute names to
// their values, e.g. {"type": "DOI", "value": "10.1000/xyz"}.
type Identifier map[string]string
