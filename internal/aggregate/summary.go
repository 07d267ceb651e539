// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"fmt"
	"io"
)

// Summary is the console summary of one run.
type Summary struct {
	Coverage
	MultiReviewStudies       int
	StudiesWithDiscrepancies int
	InconsistentCriteria     int
	FailedDocuments          int
}

// Summarize combines the coverage counts, the catalog and the report.
func Summarize(cov Coverage, catalog []CatalogEntry, report *Report, failed int) Summary {
	return Summary{
		Coverage:                 cov,
		MultiReviewStudies:       report.MultiReviewStudies,
		StudiesWithDiscrepancies: report.StudiesWithDiscrepancies(),
		InconsistentCriteria:     len(Inconsistent(catalog)),
		FailedDocuments:          failed,
	}
}

// Print writes the summary as aligned label/value lines.
func (s Summary) Print(w io.Writer) {
	lines := []struct {
		label string
		value int
	}{
		{"Total studies", s.TotalStudies},
		{"Distinct study ids", s.DistinctStudyIDs},
		{"References with identifiers", s.ReferencesWithIdentifiers},
		{"Studies with identifiers", s.StudiesWithIdentifiers},
		{"Studies in multiple reviews", s.MultiReviewStudies},
		{"Studies with discrepancies", s.StudiesWithDiscrepancies},
		{"Inconsistently named criteria", s.InconsistentCriteria},
		{"Failed documents", s.FailedDocuments},
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%-30s %d\n", l.label+":", l.value)
	}
}
