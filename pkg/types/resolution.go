// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// NormalizedAffiliation maps one unique affiliation string to a canonical
// institution name.
type NormalizedAffiliation struct {
	// OriginalName is the affiliation as it appeared in the paper.
	OriginalName string `json:"original_name" yaml:"original_name"`

	// NormalizedName is the official institution name
	// (e.g. "Massachusetts Institute of Technology").
	NormalizedName string `json:"normalized_name" yaml:"normalized_name"`

	// IsValid reports whether the affiliation was matched to a real institution.
	IsValid bool `json:"is_valid" yaml:"is_valid"`

	// Confidence is a value between 0.0 and 1.0.
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Validate checks the original name and the confidence bounds.
func (n NormalizedAffiliation) Validate() error {
	if n.OriginalName == "" {
		return fmt.Errorf("normalized affiliation has an empty original name")
	}
	if n.Confidence < 0.0 || n.Confidence > 1.0 {
		return fmt.Errorf("affiliation %q: confidence %f out of range [0,1]", n.OriginalName, n.Confidence)
	}
	return nil
}

// ResolutionResult is the resolution output for a set of unique affiliations.
type ResolutionResult struct {
	// NormalizedAffiliations holds at most one entry per input affiliation.
	NormalizedAffiliations []NormalizedAffiliation `json:"normalized_affiliations" yaml:"normalized_affiliations"`

	// NeedsClarification is set when at least one affiliation is ambiguous.
	NeedsClarification bool `json:"needs_clarification" yaml:"needs_clarification"`

	// Issues are human-readable descriptions of the ambiguous affiliations.
	Issues []string `json:"issues" yaml:"issues"`
}

// Validate checks every entry and that issues only appear alongside the
// clarification flag.
func (r ResolutionResult) Validate() error {
	seen := make(map[string]bool, len(r.NormalizedAffiliations))
	for i, n := range r.NormalizedAffiliations {
		if err := n.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[n.OriginalName] {
			return fmt.Errorf("entry %d: duplicate affiliation %q", i, n.OriginalName)
		}
		seen[n.OriginalName] = true
	}
	if len(r.Issues) > 0 && !r.NeedsClarification {
		return fmt.Errorf("%d issue(s) reported without the clarification flag", len(r.Issues))
	}
	return nil
}

// ValidatedPaper is the final pipeline output for one paper.
type ValidatedPaper struct {
	// ArxivID is the validated identifier the pipeline was run for.
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Authors are the extracted authors with their full, non-deduplicated
	// affiliation lists.
	Authors []Author `json:"authors" yaml:"authors"`

	// NormalizedAffiliations is the resolution output for the unique affiliations.
	NormalizedAffiliations []NormalizedAffiliation `json:"normalized_affiliations" yaml:"normalized_affiliations"`

	// ValidationIssues lists ambiguities that need human review. A non-empty
	// list does not make the run a failure.
	ValidationIssues []string `json:"validation_issues" yaml:"validation_issues"`
}

// NeedsReview reports whether any validation issue was raised.
func (p ValidatedPaper) NeedsReview() bool {
	return len(p.ValidationIssues) > 0
}
