// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Failure categories. Stage errors wrap one of these so callers can branch
// with errors.Is. An ambiguous affiliation is not an error; it is reported
// in ValidatedPaper.ValidationIssues.
var (
	ErrInvalidIdentifier = errors.New("invalid arXiv identifier")
	ErrFetch             = errors.New("document fetch failed")
	ErrExtraction        = errors.New("author extraction failed")
	ErrResolution        = errors.New("affiliation resolution failed")
)
