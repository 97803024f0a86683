// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument(t *testing.T) {
	doc := Document{ID: "2301.12345", Text: "Hello", PageCount: 1}
	assert.Equal(t, 5, doc.TextLength())
	assert.NoError(t, doc.Validate())
	assert.Equal(t, 6, Document{Text: "Zürich"}.TextLength(), "length counts characters")

	for _, pages := range []int{0, -1} {
		bad := Document{ID: "2301.12345", Text: "Some text", PageCount: pages}
		assert.Error(t, bad.Validate(), "page count %d", pages)
	}
	assert.Error(t, Document{Text: "x", PageCount: 1}.Validate())
}

func TestAuthorValidate(t *testing.T) {
	tests := []struct {
		name    string
		author  Author
		wantErr bool
	}{
		{"name only", Author{Name: "John Doe"}, false},
		{"with affiliations", Author{Name: "Ashish Vaswani", Affiliations: []Affiliation{{Name: "Google Brain"}, {Name: "Google Research"}}}, false},
		{"empty name", Author{}, true},
		{"empty affiliation", Author{Name: "A", Affiliations: []Affiliation{{Name: ""}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.author.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthorSet(t *testing.T) {
	set := AuthorSet{
		ArxivID: "1706.03762",
		Authors: []Author{{Name: "Author 1"}, {Name: "Author 2"}, {Name: "Author 3"}},
	}
	assert.Equal(t, 3, set.AuthorCount())
	assert.NoError(t, set.Validate())

	empty := AuthorSet{ArxivID: "1706.03762"}
	assert.Equal(t, 0, empty.AuthorCount())
	assert.NoError(t, empty.Validate(), "no authors is a valid outcome")

	assert.Error(t, AuthorSet{}.Validate())
	assert.Error(t, AuthorSet{ArxivID: "1706.03762", Authors: []Author{{}}}.Validate())
}

func TestResolutionResultValidate(t *testing.T) {
	mit := NormalizedAffiliation{
		OriginalName:   "MIT",
		NormalizedName: "Massachusetts Institute of Technology",
		IsValid:        true,
		Confidence:     0.95,
	}
	tests := []struct {
		name    string
		result  ResolutionResult
		wantErr bool
	}{
		{"empty", ResolutionResult{}, false},
		{"single", ResolutionResult{NormalizedAffiliations: []NormalizedAffiliation{mit}}, false},
		{"issues with flag", ResolutionResult{NeedsClarification: true, Issues: []string{"Ambiguous affiliation: Unknown Lab"}}, false},
		{"issues without flag", ResolutionResult{Issues: []string{"x"}}, true},
		{"duplicate", ResolutionResult{NormalizedAffiliations: []NormalizedAffiliation{mit, mit}}, true},
		{"confidence above one", ResolutionResult{NormalizedAffiliations: []NormalizedAffiliation{{OriginalName: "X", Confidence: 1.5}}}, true},
		{"confidence below zero", ResolutionResult{NormalizedAffiliations: []NormalizedAffiliation{{OriginalName: "X", Confidence: -0.1}}}, true},
		{"empty original", ResolutionResult{NormalizedAffiliations: []NormalizedAffiliation{{Confidence: 0.5}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatedPaperJSONFieldNames(t *testing.T) {
	p := ValidatedPaper{
		ArxivID: "1706.03762",
		Authors: []Author{{Name: "Ashish Vaswani", Affiliations: []Affiliation{{Name: "Google Brain"}}}},
		NormalizedAffiliations: []NormalizedAffiliation{{
			OriginalName: "Google Brain", NormalizedName: "Google", IsValid: true, Confidence: 0.9,
		}},
		ValidationIssues: []string{},
	}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"arxiv_id", "authors", "normalized_affiliations", "validation_issues"} {
		assert.Contains(t, raw, key)
	}
	assert.False(t, p.NeedsReview())
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidIdentifier, ErrFetch, ErrExtraction, ErrResolution}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
}
