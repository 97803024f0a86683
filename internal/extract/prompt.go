// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"text/template"
)

// systemPrompt is the fixed extraction instruction.
const systemPrompt = `You are an expert at extracting structured author and affiliation data from academic papers.

Extract all authors and their affiliations from the provided paper text.
For each author, include:
- Their full name
- All affiliations listed for that author

Return the data in the structured format.`

// extractionPromptTmpl wraps the paper text. The text is passed whole; it is
// never truncated or split.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract the authors of the following paper together with every affiliation listed for each author. Keep names and affiliations exactly as written in the paper, in the order they appear. Use an empty affiliations list for an author with none. If no authors can be identified, return an empty authors list.

Paper text:
{{.Text}}
`))

// authorSetSchemaName names the structured output object.
const authorSetSchemaName = "author_set"

// authorSetSchema is the JSON schema of the model reply.
var authorSetSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "authors": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "description": "The author's full name"},
          "affiliations": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": "string", "description": "Institution name as written"}
              },
              "required": ["name"]
            }
          }
        },
        "required": ["name", "affiliations"]
      }
    }
  },
  "required": ["authors"]
}`)

// renderPrompt executes the extraction prompt template with the given text.
func renderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := extractionPromptTmpl.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
