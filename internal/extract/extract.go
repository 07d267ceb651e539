// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract reads one Cochrane review document (RevMan 5 XML) and
// produces the per-study records with their risk-of-bias judgments and
// bibliographic references.
package extract

import (
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// Element and attribute names of the review schema.
const (
	tagDataEntry       = "QUALITY_ITEM_DATA_ENTRY"
	tagQualityItem     = "QUALITY_ITEM"
	tagDataEntryGroup  = "QUALITY_ITEM_DATA_ENTRY_GROUP"
	tagIncludedStudies = "INCLUDED_STUDIES"
	tagStudy           = "STUDY"
	tagReference       = "REFERENCE"
	tagIdentifier      = "IDENTIFIER"
	tagDescription     = "DESCRIPTION"
	tagParagraph       = "P"
	tagName            = "NAME"

	attrID         = "ID"
	attrStudyID    = "STUDY_ID"
	attrResult     = "RESULT"
	attrModified   = "MODIFIED"
	attrGroupID    = "GROUP_ID"
	attrDataSource = "DATA_SOURCE"
	attrType       = "TYPE"
)

// ExtractFile opens and parses the review document at path.
func ExtractFile(path string) ([]types.StudyRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening review %s: %w", path, err)
	}
	defer f.Close()
	return ExtractReader(f, path)
}

// ExtractReader parses a review document from r. sourceFile is recorded as
// provenance on every StudyRecord. Encodings declared in the XML prolog are
// honoured.
func ExtractReader(r io.Reader, sourceFile string) ([]types.StudyRecord, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing review %s: %w", sourceFile, err)
	}
	return Extract(doc, sourceFile)
}

// Extract walks a parsed review document and returns one StudyRecord per
// STUDY element in its INCLUDED_STUDIES section, in document order.
//
// Risk-of-bias entries are collected from the whole document first and then
// joined to studies by id. Any missing mandatory attribute or required
// element returns a *StructuralParseError and no records.
func Extract(doc *etree.Document, sourceFile string) ([]types.StudyRecord, error) {
	root := &doc.Element

	var robs []types.RiskOfBiasEntry
	for _, el := range descendants(root, tagDataEntry) {
		rob, err := buildRiskOfBias(sourceFile, el)
		if err != nil {
			return nil, err
		}
		robs = append(robs, rob)
	}

	included := firstDescendant(root, tagIncludedStudies)
	if included == nil {
		return nil, &StructuralParseError{
			File:    sourceFile,
			Element: tagIncludedStudies,
			Reason:  "section not found",
		}
	}

	var studies []types.StudyRecord
	for _, el := range descendants(included, tagStudy) {
		study, err := buildStudy(sourceFile, el, robs)
		if err != nil {
			return nil, err
		}
		studies = append(studies, study)
	}
	return studies, nil
}

// buildRiskOfBias reads one QUALITY_ITEM_DATA_ENTRY and resolves its
// criterion from the QUALITY_ITEM two levels up.
func buildRiskOfBias(file string, el *etree.Element) (types.RiskOfBiasEntry, error) {
	ar := newAttrReader(file, el)
	rob := types.RiskOfBiasEntry{
		StudyID:  ar.required(attrStudyID),
		Result:   ar.required(attrResult),
		Modified: ar.optional(attrModified),
		GroupID:  ar.optional(attrGroupID),
	}
	if err := ar.check(); err != nil {
		return types.RiskOfBiasEntry{}, err
	}

	// Last paragraph wins when an entry carries several.
	for _, p := range descendants(el, tagParagraph) {
		rob.ResultDescription = p.Text()
	}

	item, err := qualityItem(file, el)
	if err != nil {
		return types.RiskOfBiasEntry{}, err
	}

	ir := newAttrReader(file, item)
	rob.RobID = ir.required(attrID)
	if err := ir.check(); err != nil {
		return types.RiskOfBiasEntry{}, err
	}
	rob.RobName = childText(item, tagName)

	var para *etree.Element
	if desc := item.SelectElement(tagDescription); desc != nil {
		para = desc.SelectElement(tagParagraph)
	}
	if para == nil {
		e := structuralError(file, item, "criterion has no DESCRIPTION/P")
		e.Context = fmt.Sprintf("ID=%q", rob.RobID)
		return types.RiskOfBiasEntry{}, e
	}
	rob.RobDescription = para.Text()

	rob.GroupName = groupName(item, rob.GroupID)
	return rob, nil
}

// qualityItem returns the criterion element owning a data entry. The entry
// must sit exactly two levels below it.
func qualityItem(file string, entry *etree.Element) (*etree.Element, error) {
	parent := entry.Parent()
	if parent == nil || parent.Parent() == nil {
		return nil, structuralError(file, entry, "entry is not nested two levels below a QUALITY_ITEM")
	}
	item := parent.Parent()
	if item.Tag != tagQualityItem {
		e := structuralError(file, entry, fmt.Sprintf("grandparent is %q, want %s", item.Tag, tagQualityItem))
		e.Context = fmt.Sprintf("STUDY_ID=%q", entry.SelectAttrValue(attrStudyID, ""))
		return nil, e
	}
	return item, nil
}

// groupName returns the NAME of the first declared group whose ID equals
// groupID, or "" when none matches.
func groupName(item *etree.Element, groupID string) string {
	for _, g := range descendants(item, tagDataEntryGroup) {
		id := g.SelectAttr(attrID)
		if id != nil && id.Value == groupID {
			return childText(g, tagName)
		}
	}
	return ""
}

func buildStudy(file string, el *etree.Element, robs []types.RiskOfBiasEntry) (types.StudyRecord, error) {
	ar := newAttrReader(file, el)
	ar.context = fmt.Sprintf("ID=%q", el.SelectAttrValue(attrID, ""))
	study := types.StudyRecord{
		SourceFile: file,
		StudyID:    ar.required(attrID),
		StudyType:  ar.required(attrDataSource),
		RiskOfBias: []types.RiskOfBiasEntry{},
		References: []types.ReferenceEntry{},
	}
	if err := ar.check(); err != nil {
		return types.StudyRecord{}, err
	}

	for _, rob := range robs {
		if rob.StudyID == study.StudyID {
			study.RiskOfBias = append(study.RiskOfBias, rob)
		}
	}

	for _, refEl := range descendants(el, tagReference) {
		ref, err := buildReference(file, refEl, study.StudyID)
		if err != nil {
			return types.StudyRecord{}, err
		}
		study.References = append(study.References, ref)
	}
	return study, nil
}

func buildReference(file string, el *etree.Element, studyID string) (types.ReferenceEntry, error) {
	ar := newAttrReader(file, el)
	ar.context = fmt.Sprintf("STUDY ID=%q", studyID)
	ref := types.ReferenceEntry{
		Type:    ar.required(attrType),
		Authors: childText(el, "AU"),
		Title:   childText(el, "TI"),
		Source:  childText(el, "SO"),
		Year:    childText(el, "YR"),
		Volume:  childText(el, "VL"),
		Issue:   childText(el, "NO"),
		Pages:   childText(el, "PG"),
		Country: childText(el, "CY"),
	}
	if err := ar.check(); err != nil {
		return types.ReferenceEntry{}, err
	}

	ref.Identifiers = []types.Identifier{}
	for _, idEl := range descendants(el, tagIdentifier) {
		attrs := make(map[string]string, len(idEl.Attr))
		for i := range idEl.Attr {
			a := &idEl.Attr[i]
			attrs[a.FullKey()] = a.Value
		}
		ref.Identifiers = append(ref.Identifiers, NormalizeIdentifier(attrs))
	}
	return ref, nil
}

// childText returns the text of the first direct child named tag, or "".
func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

// descendants returns every element below el named tag, in document order.
func descendants(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, descendants(c, tag)...)
	}
	return out
}

// firstDescendant returns the first element below el named tag in document
// order, or nil.
func firstDescendant(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}
