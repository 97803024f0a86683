// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// arxivPDFBase is the PDF endpoint. Declared as a var so tests can
// substitute an httptest server.
var arxivPDFBase = "https://arxiv.org/pdf/"

// versionPattern matches a trailing version suffix: "v1", "v12".
var versionPattern = regexp.MustCompile(`v(\d+)$`)

// basePattern matches the two numeric segments of a modern arXiv ID.
var basePattern = regexp.MustCompile(`^\d{4}\.\d{5}$`)

// ParseArxivID validates raw as "<4 digits>.<5 digits>" with an optional
// "v<N>" suffix and returns it unchanged inside a PaperIdentifier. Any other
// shape, including surrounding whitespace, fails with an error wrapping
// types.ErrInvalidIdentifier. No I/O is performed.
func ParseArxivID(raw string) (types.PaperIdentifier, error) {
	if raw == "" {
		return types.PaperIdentifier{}, fmt.Errorf("%w: empty identifier", types.ErrInvalidIdentifier)
	}

	base := raw
	version := ""
	if loc := versionPattern.FindStringSubmatchIndex(raw); loc != nil {
		base = raw[:loc[0]]
		version = raw[loc[2]:loc[3]]
	}

	parts := strings.Split(base, ".")
	if len(parts) != 2 || !basePattern.MatchString(base) {
		return types.PaperIdentifier{}, fmt.Errorf("%w: %q", types.ErrInvalidIdentifier, raw)
	}

	return types.PaperIdentifier{Raw: raw, Base: base, Version: version}, nil
}

// PDFURL returns the arxiv.org download URL for id. The HTTP client follows
// the redirect arxiv.org issues for unversioned IDs.
func PDFURL(id types.PaperIdentifier) string {
	return arxivPDFBase + id.Raw + ".pdf"
}

// CachePath returns the cache file for id under dir. The same identifier
// always maps to the same path.
func CachePath(dir string, id types.PaperIdentifier) string {
	return filepath.Join(dir, id.Raw+".pdf")
}
