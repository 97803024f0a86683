package pipeline

import "github.com/pdiddy/affiliation-engine/pkg/types"

// Dedupe returns each affiliation name once, in order of first appearance
// across authors. Names are compared exactly. The result is never nil.
func Dedupe(authors []types.Author) []types.Affiliation {
	seen := make(map[string]bool)
	unique := []types.Affiliation{}
	for _, a := range authors {
		for _, aff := range a.Affiliations {
			if seen[aff.Name] {
				continue
			}
			seen[aff.Name] = true
			unique = append(unique, aff)
		}
	}
	return unique
}
