package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/pipeline"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

func samplePaper() *types.ValidatedPaper {
	return &types.ValidatedPaper{
		ArxivID: "1706.03762",
		Authors: []types.Author{
			{Name: "Ashish Vaswani", Affiliations: []types.Affiliation{{Name: "Google Brain"}}},
			{Name: "Aidan N. Gomez", Affiliations: []types.Affiliation{{Name: "University of Toronto"}, {Name: "Unknown Lab"}}},
		},
		NormalizedAffiliations: []types.NormalizedAffiliation{
			{OriginalName: "Google Brain", NormalizedName: "Google Brain", IsValid: true, Confidence: 0.95},
			{OriginalName: "University of Toronto", NormalizedName: "University of Toronto", IsValid: true, Confidence: 0.99},
			{OriginalName: "Unknown Lab", NormalizedName: "Unknown Lab", IsValid: false, Confidence: 0.2},
		},
		ValidationIssues: []string{"Could not identify 'Unknown Lab'"},
	}
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		assert.NoError(t, checkFormat(f))
	}
	assert.Error(t, checkFormat("xml"))
}

func TestWritePaper_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePaper(&buf, formatText, samplePaper()))
	out := buf.String()

	assert.Contains(t, out, "arXiv ID: 1706.03762")
	assert.Contains(t, out, "Authors (2):")
	assert.Contains(t, out, "  Ashish Vaswani\n    - Google Brain\n")
	assert.Contains(t, out, "✓ Google Brain -> Google Brain (confidence 0.95)")
	assert.Contains(t, out, "✗ Unknown Lab -> Unknown Lab (confidence 0.20)")
	assert.Contains(t, out, "Validation issues (1):")
	assert.Contains(t, out, "! Could not identify 'Unknown Lab'")
}

func TestWritePaper_TextNoIssues(t *testing.T) {
	p := samplePaper()
	p.ValidationIssues = []string{}
	var buf bytes.Buffer
	require.NoError(t, writePaper(&buf, formatText, p))
	assert.NotContains(t, buf.String(), "Validation issues")
}

func TestWritePaper_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePaper(&buf, formatJSON, samplePaper()))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "1706.03762", out["arxiv_id"])
	assert.Len(t, out["normalized_affiliations"], 3)
	assert.Len(t, out["validation_issues"], 1)
}

func TestWritePaper_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePaper(&buf, formatYAML, samplePaper()))

	var out types.ValidatedPaper
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, *samplePaper(), out)
	assert.Contains(t, buf.String(), "is_valid: false")
}

func TestWriteBatch(t *testing.T) {
	items := []pipeline.BatchItem{
		{ArxivID: "1706.03762", Paper: samplePaper()},
		{ArxivID: "bad", Err: errors.New("validating bad: invalid arXiv identifier")},
	}

	var buf bytes.Buffer
	failed, err := writeBatch(&buf, formatText, items)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "failed  bad: validating bad")
	assert.Contains(t, buf.String(), "1 processed, 1 failed")

	buf.Reset()
	failed, err = writeBatch(&buf, formatJSON, items)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	var records []batchRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.NotNil(t, records[0].Paper)
	assert.Empty(t, records[0].Error)
	assert.Nil(t, records[1].Paper)
	assert.Contains(t, records[1].Error, "invalid arXiv identifier")
}

func TestWriteDocument(t *testing.T) {
	var buf bytes.Buffer
	writeDocument(&buf, types.Document{ID: "1706.03762", Text: "This is test text with some content.", PageCount: 15})

	out := buf.String()
	assert.Contains(t, out, "1706.03762")
	assert.Contains(t, out, "Pages: 15")
	assert.Contains(t, out, "Text length: 36")
}

func TestWriteCache(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeCache(&buf, formatText, nil))
	assert.Equal(t, "cache is empty\n", buf.String())

	entries := []acquire.CacheEntry{{
		ArxivID:   "1706.03762",
		PageCount: 15,
		Size:      2215244,
		FetchedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
	}}
	buf.Reset()
	require.NoError(t, writeCache(&buf, formatText, entries))
	assert.Contains(t, buf.String(), "1706.03762")
	assert.Contains(t, buf.String(), "2026-01-02 03:04")
	assert.True(t, strings.HasSuffix(buf.String(), "1 document(s)\n"))

	buf.Reset()
	require.NoError(t, writeCache(&buf, formatJSON, nil))
	assert.JSONEq(t, "[]", buf.String())
}
