package acquire

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// decodePDF returns the plain text of every page joined by newlines, and the
// number of pages declared by the document's page tree. Pages whose text
// cannot be decoded contribute an empty string rather than failing the
// whole document.
func decodePDF(content []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("open PDF: %w", err)
	}

	numPages := r.NumPage()
	if numPages <= 0 {
		return "", 0, fmt.Errorf("PDF has no pages")
	}

	parts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			parts = append(parts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n"), numPages, nil
}
