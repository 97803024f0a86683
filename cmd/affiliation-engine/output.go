// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/pipeline"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}

// writePaper prints a validated paper.
func writePaper(w io.Writer, format string, p *types.ValidatedPaper) error {
	if format != formatText {
		return encode(w, format, p)
	}

	fmt.Fprintf(w, "arXiv ID: %s\n", p.ArxivID)

	fmt.Fprintf(w, "\nAuthors (%d):\n", len(p.Authors))
	for _, a := range p.Authors {
		fmt.Fprintf(w, "  %s\n", a.Name)
		for _, aff := range a.Affiliations {
			fmt.Fprintf(w, "    - %s\n", aff.Name)
		}
	}

	fmt.Fprintf(w, "\nNormalized affiliations (%d):\n", len(p.NormalizedAffiliations))
	for _, n := range p.NormalizedAffiliations {
		mark := "✓"
		if !n.IsValid {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s -> %s (confidence %.2f)\n", mark, n.OriginalName, n.NormalizedName, n.Confidence)
	}

	if len(p.ValidationIssues) > 0 {
		fmt.Fprintf(w, "\nValidation issues (%d):\n", len(p.ValidationIssues))
		for _, issue := range p.ValidationIssues {
			fmt.Fprintf(w, "  ! %s\n", issue)
		}
	}
	return nil
}

// batchRecord is the structured form of a batch item.
type batchRecord struct {
	ArxivID string                `json:"arxiv_id" yaml:"arxiv_id"`
	Paper   *types.ValidatedPaper `json:"paper,omitempty" yaml:"paper,omitempty"`
	Error   string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// writeBatch prints batch results and returns the number of failures.
func writeBatch(w io.Writer, format string, items []pipeline.BatchItem) (int, error) {
	failed := 0
	records := make([]batchRecord, len(items))
	for i, item := range items {
		records[i] = batchRecord{ArxivID: item.ArxivID, Paper: item.Paper}
		if !item.OK() {
			failed++
			records[i].Error = item.Err.Error()
		}
	}

	if format != formatText {
		return failed, encode(w, format, records)
	}

	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(w, "\n---")
		}
		if !item.OK() {
			fmt.Fprintf(w, "failed  %s: %v\n", item.ArxivID, item.Err)
			continue
		}
		if err := writePaper(w, formatText, item.Paper); err != nil {
			return failed, err
		}
	}
	fmt.Fprintf(w, "\n%d processed, %d failed\n", len(items)-failed, failed)
	return failed, nil
}

// writeDocument prints the fetch summary.
func writeDocument(w io.Writer, doc types.Document) {
	fmt.Fprintf(w, "arXiv ID: %s\n", doc.ID)
	fmt.Fprintf(w, "Pages: %d\n", doc.PageCount)
	fmt.Fprintf(w, "Text length: %d\n", doc.TextLength())
}

// writeCache prints the cache manifest.
func writeCache(w io.Writer, format string, entries []acquire.CacheEntry) error {
	if format != formatText {
		if entries == nil {
			entries = []acquire.CacheEntry{}
		}
		return encode(w, format, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "cache is empty")
		return nil
	}
	for _, e := range entries {
		fetched := "-"
		if !e.FetchedAt.IsZero() {
			fetched = e.FetchedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%-16s %4d pages %10d bytes  %s\n", e.ArxivID, e.PageCount, e.Size, fetched)
	}
	fmt.Fprintf(w, "%d document(s)\n", len(entries))
	return nil
}
