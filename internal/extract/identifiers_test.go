// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rob-extract/pkg/types"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  types.Identifier
	}{
		{
			name: "drops bookkeeping and lower-cases keys",
			attrs: map[string]string{
				"MODIFIED":    "2014-01-01 00:00:00 +0000",
				"MODIFIED_BY": "Editor",
				"TYPE":        "DOI",
				"VALUE":       "10.1000/abc",
			},
			want: types.Identifier{"type": "DOI", "value": "10.1000/abc"},
		},
		{
			name:  "bookkeeping keys match regardless of case",
			attrs: map[string]string{"Modified": "x", "modified_by": "y", "Type": "MEDLINE"},
			want:  types.Identifier{"type": "MEDLINE"},
		},
		{
			name:  "lower-case name wins a case collision",
			attrs: map[string]string{"VALUE": "A", "value": "B", "Value": "C"},
			want:  types.Identifier{"value": "B"},
		},
		{
			name:  "case collision without a lower-case name",
			attrs: map[string]string{"Value": "C", "VALUE": "A"},
			want:  types.Identifier{"value": "A"},
		},
		{
			name:  "only bookkeeping attributes",
			attrs: map[string]string{"MODIFIED": "x", "MODIFIED_BY": "y"},
			want:  types.Identifier{},
		},
		{
			name:  "empty input",
			attrs: map[string]string{},
			want:  types.Identifier{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeIdentifier(tt.attrs)
			assert.Equal(t, tt.want, got)
			for range 50 {
				require.Equal(t, got, NormalizeIdentifier(tt.attrs), "normalization must be deterministic")
			}
			assert.Equal(t, got, NormalizeIdentifier(got), "normalization must be idempotent")
		})
	}
}

func TestFormatIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		ids  []types.Identifier
		want string
	}{
		{name: "none", ids: nil, want: ""},
		{
			name: "single identifier sorted by key",
			ids:  []types.Identifier{{"value": "10.1000/abc", "type": "DOI"}},
			want: "type=DOI;value=10.1000/abc",
		},
		{
			name: "multiple identifiers",
			ids: []types.Identifier{
				{"type": "DOI", "value": "10.1000/abc"},
				{"type": "PUBMED", "value": "123"},
			},
			want: "type=DOI;value=10.1000/abc|type=PUBMED;value=123",
		},
		{
			name: "identifier without attributes",
			ids:  []types.Identifier{{}},
			want: "{}",
		},
		{
			name: "empty identifier among others",
			ids:  []types.Identifier{{"type": "DOI"}, {}},
			want: "type=DOI|{}",
		},
		{
			name: "separators are escaped",
			ids:  []types.Identifier{{"type": "OTHER", "value": `a=b;c|d\e`}},
			want: `type=OTHER;value=a\=b\;c\|d\\e`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatIdentifiers(tt.ids))
		})
	}
}

func TestParseIdentifiersInvertsFormat(t *testing.T) {
	inputs := [][]types.Identifier{
		{{"type": "DOI", "value": "10.1000/abc"}},
		{{"type": "DOI", "value": "10.1000/abc"}, {"type": "PUBMED", "value": "123"}},
		{{"type": "OTHER", "value": `a=b;c|d\e`}},
		{{"type": "ISRCTN", "value": ""}},
		{{"": "keyless"}},
		{{}},
		{{}, {}},
		{{}, {"type": "DOI", "value": "10.1000/abc"}},
		{{"type": "DOI", "value": "{}"}},
		{{"{}": ""}},
	}

	for _, ids := range inputs {
		s := FormatIdentifiers(ids)
		got, err := ParseIdentifiers(s)
		require.NoError(t, err, "parsing %q", s)
		assert.Equal(t, ids, got, "round trip of %q", s)
	}
}

func TestParseIdentifiersEmpty(t *testing.T) {
	got, err := ParseIdentifiers("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdentifierWithOnlyBookkeepingSurvivesFormatting(t *testing.T) {
	ids := []types.Identifier{NormalizeIdentifier(map[string]string{"MODIFIED": "x", "MODIFIED_BY": "y"})}

	got, err := ParseIdentifiers(FormatIdentifiers(ids))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestParseIdentifiersErrors(t *testing.T) {
	tests := []string{
		"type",
		"type=DOI;value",
		"type=a=b",
		`type=DOI\`,
		"{};type=DOI",
		`\{\}`,
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := ParseIdentifiers(s)
			assert.Error(t, err)
		})
	}
}
