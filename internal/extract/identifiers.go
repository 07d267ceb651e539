// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/rob-extract/pkg/types"
)

// bookkeepingKeys are IDENTIFIER attributes that describe the edit history
// rather than the identifier itself.
var bookkeepingKeys = map[string]bool{
	"modified":    true,
	"modified_by": true,
}

// NormalizeIdentifier lower-cases attribute names and drops the MODIFIED
// and MODIFIED_BY bookkeeping attributes. When several attributes differ
// only in case, an already lower-case name wins, otherwise the first in
// sorted order. Applying it to its own output returns an equal mapping.
func NormalizeIdentifier(attrs map[string]string) types.Identifier {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(types.Identifier, len(attrs))
	for _, k := range keys {
		key := strings.ToLower(k)
		if bookkeepingKeys[key] {
			continue
		}
		if _, seen := out[key]; seen && k != key {
			continue
		}
		out[key] = attrs[k]
	}
	return out
}

const (
	identSep = '|'
	pairSep  = ';'
	kvSep    = '='
	escape   = '\\'

	// emptyIdent stands for an identifier with no attributes. It cannot
	// collide with a real segment, which always holds an unescaped '='.
	emptyIdent = "{}"
)

var identEscaper = strings.NewReplacer(
	`\`, `\\`,
	`|`, `\|`,
	`;`, `\;`,
	`=`, `\=`,
)

// FormatIdentifiers renders identifiers as `key=value` pairs sorted by key
// and joined with ';', one identifier per '|'-separated segment. Separator
// and escape characters inside keys or values are backslash escaped. An
// identifier with no attributes is written as "{}" so that it stays
// distinct from no identifiers at all. ParseIdentifiers reverses it.
func FormatIdentifiers(ids []types.Identifier) string {
	segments := make([]string, len(ids))
	for i, id := range ids {
		if len(id) == 0 {
			segments[i] = emptyIdent
			continue
		}
		keys := make([]string, 0, len(id))
		for k := range id {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, len(keys))
		for j, k := range keys {
			pairs[j] = identEscaper.Replace(k) + string(kvSep) + identEscaper.Replace(id[k])
		}
		segments[i] = strings.Join(pairs, string(pairSep))
	}
	return strings.Join(segments, string(identSep))
}

// ParseIdentifiers parses the output of FormatIdentifiers. The empty string
// yields no identifiers.
func ParseIdentifiers(s string) ([]types.Identifier, error) {
	if s == "" {
		return nil, nil
	}

	var (
		out      []types.Identifier
		cur      = types.Identifier{}
		key, buf strings.Builder
		raw      strings.Builder // unparsed text of the current segment
		inValue  bool
		escaped  bool
	)

	flushPair := func() error {
		if !inValue {
			if buf.Len() == 0 {
				return nil
			}
			return fmt.Errorf("identifier pair %q has no %q", buf.String(), kvSep)
		}
		cur[key.String()] = buf.String()
		key.Reset()
		buf.Reset()
		inValue = false
		return nil
	}

	flushSegment := func() error {
		if raw.String() == emptyIdent {
			buf.Reset()
		} else if err := flushPair(); err != nil {
			return err
		}
		out = append(out, cur)
		cur = types.Identifier{}
		raw.Reset()
		return nil
	}

	for _, r := range s {
		if escaped {
			buf.WriteRune(r)
			raw.WriteRune(r)
			escaped = false
			continue
		}
		if r != identSep {
			raw.WriteRune(r)
		}
		switch r {
		case escape:
			escaped = true
		case kvSep:
			if inValue {
				return nil, fmt.Errorf("unescaped %q in identifier value %q", kvSep, buf.String())
			}
			key.WriteString(buf.String())
			buf.Reset()
			inValue = true
		case pairSep:
			if err := flushPair(); err != nil {
				return nil, err
			}
		case identSep:
			if err := flushSegment(); err != nil {
				return nil, err
			}
		default:
			buf.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("trailing escape in identifiers %q", s)
	}
	if err := flushSegment(); err != nil {
		return nil, err
	}
	return out, nil
}
