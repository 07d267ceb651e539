// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrStructural matches every StructuralParseError via errors.Is.
var ErrStructural = errors.New("structural parse error")

// StructuralParseError reports a review document that lacks a mandatory
// attribute or a required element. It aborts extraction of the whole
// document.
type StructuralParseError struct {
	// File is the review document path.
	File string

	// Element is the tag of the element being read.
	Element string

	// Attr is the missing attribute, empty for structural problems.
	Attr string

	// Context identifies the element within the document (e.g. `ID="STD-1"`).
	Context string

	// Reason describes the violated assumption.
	Reason string
}

func (e *StructuralParseError) Error() string {
	var b strings.Builder
	b.WriteString(ErrStructural.Error())
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	b.WriteString(": ")
	b.WriteString(e.Element)
	if e.Context != "" {
		fmt.Fprintf(&b, " [%s]", e.Context)
	}
	if e.Attr != "" {
		fmt.Fprintf(&b, " missing required attribute %s", e.Attr)
	}
	if e.Reason != "" {
		if e.Attr != "" {
			b.WriteString(":")
		}
		b.WriteString(" ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is reports whether target is ErrStructural.
func (e *StructuralParseError) Is(target error) bool {
	return target == ErrStructural
}

// attrReader reads the attributes of one element and records the first
// missing mandatory attribute. Builders call check once after reading every
// field, so a record is either complete or not produced at all.
type attrReader struct {
	file    string
	el      *etree.Element
	context string
	err     *StructuralParseError
}

func newAttrReader(file string, el *etree.Element) *attrReader {
	return &attrReader{file: file, el: el}
}

// required returns the attribute value, or "" and records an error when the
// attribute is absent. An attribute present with an empty value is accepted.
func (r *attrReader) required(key string) string {
	if a := r.el.SelectAttr(key); a != nil {
		return a.Value
	}
	if r.err == nil {
		r.err = &StructuralParseError{
			File:    r.file,
			Element: r.el.Tag,
			Attr:    key,
			Context: r.context,
		}
	}
	return ""
}

// optional returns the attribute value or "" when absent.
func (r *attrReader) optional(key string) string {
	return r.el.SelectAttrValue(key, "")
}

func (r *attrReader) check() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func structuralError(file string, el *etree.Element, reason string) *StructuralParseError {
	tag := ""
	if el != nil {
		tag = el.Tag
	}
	return &StructuralParseError{File: file, Element: tag, Reason: reason}
}
