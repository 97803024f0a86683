// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Affiliation is an institution string exactly as it appears in the paper.
// Two affiliations are equal when their names are byte-for-byte equal; no
// case or whitespace folding happens at this layer.
type Affiliation struct {
	// Name is the institution as written (e.g. "Google Brain").
	Name string `json:"name" yaml:"name"`
}

// Author is one paper author with the affiliations listed for them.
type Author struct {
	// Name is the author's full name.
	Name string `json:"name" yaml:"name"`

	// Affiliations lists the author's affiliations in extraction order.
	// The list may be empty and may repeat entries.
	Affiliations []Affiliation `json:"affiliations" yaml:"affiliations"`
}

// Validate checks that the author and every affiliation have a name.
func (a Author) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("author name is empty")
	}
	for i, aff := range a.Affiliations {
		if aff.Name == "" {
			return fmt.Errorf("author %q: affiliation %d has an empty name", a.Name, i)
		}
	}
	return nil
}

// AuthorSet holds every author extracted from one paper.
type AuthorSet struct {
	// ArxivID identifies the paper. The orchestrator overwrites it with the
	// validated identifier because the extraction backend is not
	// authoritative for this field.
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Authors lists the authors in paper order. An empty list is a valid
	// outcome, not an error.
	Authors []Author `json:"authors" yaml:"authors"`
}

// AuthorCount returns the number of authors.
func (s AuthorSet) AuthorCount() int {
	return len(s.Authors)
}

// Validate checks the identifier and every author.
func (s AuthorSet) Validate() error {
	if s.ArxivID == "" {
		return fmt.Errorf("author set has no arXiv ID")
	}
	for i, a := range s.Authors {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("author %d: %w", i, err)
		}
	}
	return nil
}
