// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package aggregate

import (
	"sort"
	"strings"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// CatalogColumns is the column order of the bias-criterion/group table.
var CatalogColumns = []string{"rob_id", "group_id", "rob_names", "group_names"}

// catalogSep joins the name lists in the table.
const catalogSep = "|"

// CatalogEntry lists the names observed for one (rob_id, group_id) pair.
type CatalogEntry struct {
	RobID      string   `json:"rob_id" yaml:"rob_id"`
	GroupID    string   `json:"group_id" yaml:"group_id"`
	RobNames   []string `json:"rob_names" yaml:"rob_names"`
	GroupNames []string `json:"group_names" yaml:"group_names"`
}

type catalogKey struct {
	robID, groupID string
}

// BuildCatalog returns one entry per distinct (rob_id, group_id) pair sorted
// by rob_id then group_id. Names keep the order they were first seen in.
func BuildCatalog(studies []types.StudyRecord) []CatalogEntry {
	index := make(map[catalogKey]*CatalogEntry)
	seenRob := make(map[catalogKey]map[string]bool)
	seenGroup := make(map[catalogKey]map[string]bool)

	for _, s := range studies {
		for _, e := range s.RiskOfBias {
			k := catalogKey{e.RobID, e.GroupID}
			entry, ok := index[k]
			if !ok {
				entry = &CatalogEntry{RobID: e.RobID, GroupID: e.GroupID}
				index[k] = entry
				seenRob[k] = make(map[string]bool)
				seenGroup[k] = make(map[string]bool)
			}
			if !seenRob[k][e.RobName] {
				seenRob[k][e.RobName] = true
				entry.RobNames = append(entry.RobNames, e.RobName)
			}
			if !seenGroup[k][e.GroupName] {
				seenGroup[k][e.GroupName] = true
				entry.GroupNames = append(entry.GroupNames, e.GroupName)
			}
		}
	}

	entries := make([]CatalogEntry, 0, len(index))
	for _, e := range index {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].RobID != entries[j].RobID {
			return entries[i].RobID < entries[j].RobID
		}
		return entries[i].GroupID < entries[j].GroupID
	})
	return entries
}

// CatalogRecords renders entries as table records in CatalogColumns order.
func CatalogRecords(entries []CatalogEntry) [][]string {
	out := make([][]string, len(entries))
	for i, e := range entries {
		out[i] = []string{
			e.RobID,
			e.GroupID,
			strings.Join(e.RobNames, catalogSep),
			strings.Join(e.GroupNames, catalogSep),
		}
	}
	return out
}

// Inconsistent returns the entries whose pair was seen under more than one
// criterion or group name.
func Inconsistent(entries []CatalogEntry) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range entries {
		if len(e.RobNames) > 1 || len(e.GroupNames) > 1 {
			out = append(out, e)
		}
	}
	return out
}
