// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

const systemPrompt = `You are an expert on research institutions worldwide.

You receive affiliation strings copied verbatim from academic papers. For each one:
- Decide whether it names a real institution.
- Give the institution's official name (e.g. "MIT" becomes "Massachusetts Institute of Technology").
- Give a confidence between 0.0 and 1.0.

If an affiliation could refer to more than one institution, or cannot be matched, set needs_clarification and describe the problem in issues, naming the affiliation.`

// resolutionPromptTmpl lists the inputs as a JSON array so that each string
// is delimited exactly.
var resolutionPromptTmpl = template.Must(template.New("resolution").Parse(`Normalize the following affiliations. Return exactly one entry per affiliation, with original_name copied unchanged from this list:

{{.Affiliations}}
`))

const resolutionSchemaName = "resolution_result"

var resolutionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "normalized_affiliations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "original_name": {"type": "string"},
          "normalized_name": {"type": "string"},
          "is_valid": {"type": "boolean"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["original_name", "normalized_name", "is_valid", "confidence"]
      }
    },
    "needs_clarification": {"type": "boolean"},
    "issues": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["normalized_affiliations", "needs_clarification", "issues"]
}`)

func renderPrompt(affs []types.Affiliation) (string, error) {
	names := make([]string, len(affs))
	for i, a := range affs {
		names[i] = a.Name
	}
	list, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := resolutionPromptTmpl.Execute(&buf, struct{ Affiliations string }{Affiliations: string(list)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
