// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aggregate computes corpus-level views over the extracted study
// records: identifier coverage, the bias-criterion/group naming catalog, and
// the cross-document discrepancy report.
//
// Study ids are only unique within one review document, but every view here
// groups by study id alone. Two reviews that reuse an id for different
// studies are therefore merged; the discrepancy report is where such
// collisions surface.
package aggregate

import "github.com/pdiddy/rob-extract/pkg/types"

// Coverage holds study and identifier counts across the corpus.
type Coverage struct {
	TotalStudies              int `json:"total_studies" yaml:"total_studies"`
	DistinctStudyIDs          int `json:"distinct_study_ids" yaml:"distinct_study_ids"`
	ReferencesWithIdentifiers int `json:"references_with_identifiers" yaml:"references_with_identifiers"`
	StudiesWithIdentifiers    int `json:"studies_with_identifiers" yaml:"studies_with_identifiers"`
}

// ComputeCoverage counts study records, distinct study ids, references that
// carry at least one identifier, and distinct study ids owning such a
// reference.
func ComputeCoverage(studies []types.StudyRecord) Coverage {
	ids := make(map[string]bool)
	withIdent := make(map[string]bool)
	c := Coverage{TotalStudies: len(studies)}

	for _, s := range studies {
		ids[s.StudyID] = true
		for _, r := range s.References {
			if len(r.Identifiers) > 0 {
				c.ReferencesWithIdentifiers++
				withIdent[s.StudyID] = true
			}
		}
	}

	c.DistinctStudyIDs = len(ids)
	c.StudiesWithIdentifiers = len(withIdent)
	return c
}
