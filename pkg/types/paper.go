// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the affiliation pipeline:
// the validated paper identifier, the acquired document, the extracted
// authors, the resolution output and the final validated paper.
package types

import (
	"fmt"
	"unicode/utf8"
)

// PaperIdentifier is a validated arXiv identifier such as "1706.03762" or
// "2301.12345v2". Construct it with acquire.ParseArxivID.
type PaperIdentifier struct {
	// Raw is the identifier exactly as supplied by the caller.
	Raw string `json:"raw" yaml:"raw"`

	// Base is the identifier without its version suffix (e.g. "2301.12345").
	Base string `json:"base" yaml:"base"`

	// Version holds the digits of the "v<N>" suffix, or "" when none was given.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
}

// String returns the identifier as supplied.
func (id PaperIdentifier) String() string {
	return id.Raw
}

// HasVersion reports whether the identifier pins a specific version.
func (id PaperIdentifier) HasVersion() bool {
	return id.Version != ""
}

// Document holds the raw text acquired for one paper.
type Document struct {
	// ID is the arXiv identifier the text was fetched for.
	ID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Text is the full plain text of every page, joined by newlines.
	Text string `json:"text" yaml:"text"`

	// PageCount is the number of pages decoded from the PDF.
	PageCount int `json:"page_count" yaml:"page_count"`
}

// TextLength returns the number of characters in Text.
func (d Document) TextLength() int {
	return utf8.RuneCountInString(d.Text)
}

// Validate checks that the document carries an identifier and at least one page.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document has no arXiv ID")
	}
	if d.PageCount <= 0 {
		return fmt.Errorf("document %s: page count must be positive, got %d", d.ID, d.PageCount)
	}
	return nil
}
