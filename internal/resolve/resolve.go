// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps raw affiliation strings to official institution
// names and reports the ones that need a human to look at them.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/inference"
	"github.com/pdiddy/affiliation-engine/internal/retry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Resolver normalizes a list of unique affiliations.
type Resolver interface {
	Resolve(ctx context.Context, affs []types.Affiliation) (types.ResolutionResult, error)
}

// Service implements Resolver on top of an inference.Client.
type Service struct {
	client inference.Client
	policy retry.Policy
	logger *zap.Logger
}

// NewService returns a Service using cfg's attempt budget and per-attempt
// timeout.
func NewService(client inference.Client, cfg types.AIConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		policy: retry.Policy{
			Attempts: cfg.Attempts,
			Timeout:  cfg.CallTimeout,
			Name:     "resolve",
			Logger:   logger,
		},
		logger: logger,
	}
}

// Resolve normalizes affs. An empty input returns an empty result without
// calling the model. The result has one entry per input, in input order.
// Failures wrap types.ErrResolution.
func (s *Service) Resolve(ctx context.Context, affs []types.Affiliation) (types.ResolutionResult, error) {
	if len(affs) == 0 {
		return emptyResult(), nil
	}

	prompt, err := renderPrompt(affs)
	if err != nil {
		return types.ResolutionResult{}, fmt.Errorf("%w: rendering prompt: %w", types.ErrResolution, err)
	}
	req := inference.Request{
		System:     systemPrompt,
		Prompt:     prompt,
		SchemaName: resolutionSchemaName,
		Schema:     resolutionSchema,
	}

	res, err := retry.Do(ctx, s.policy, func(ctx context.Context) (types.ResolutionResult, error) {
		raw, err := s.client.Generate(ctx, req)
		if err != nil {
			return types.ResolutionResult{}, err
		}
		return decodeReply(raw, affs)
	})
	if err != nil {
		return types.ResolutionResult{}, fmt.Errorf("%w: %w", types.ErrResolution, err)
	}

	res = complete(affs, res)
	if err := res.Validate(); err != nil {
		return types.ResolutionResult{}, fmt.Errorf("%w: %w", types.ErrResolution, err)
	}

	s.logger.Debug("affiliations resolved",
		zap.Int("affiliations", len(res.NormalizedAffiliations)),
		zap.Bool("needs_clarification", res.NeedsClarification),
		zap.Int("issues", len(res.Issues)))
	return res, nil
}

func emptyResult() types.ResolutionResult {
	return types.ResolutionResult{
		NormalizedAffiliations: []types.NormalizedAffiliation{},
		Issues:                 []string{},
	}
}

// decodeReply parses a model reply and rejects entries that do not belong
// to the inputs, duplicates and out-of-range confidences. A rejected reply
// is retried.
func decodeReply(raw json.RawMessage, affs []types.Affiliation) (types.ResolutionResult, error) {
	var r types.ResolutionResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return types.ResolutionResult{}, fmt.Errorf("parsing reply JSON: %w", err)
	}

	inputs := make(map[string]bool, len(affs))
	for _, a := range affs {
		inputs[a.Name] = true
	}

	seen := make(map[string]bool, len(r.NormalizedAffiliations))
	for i, n := range r.NormalizedAffiliations {
		if err := n.Validate(); err != nil {
			return types.ResolutionResult{}, fmt.Errorf("invalid reply: entry %d: %w", i, err)
		}
		if !inputs[n.OriginalName] {
			return types.ResolutionResult{}, fmt.Errorf("invalid reply: entry %d: %q is not one of the inputs", i, n.OriginalName)
		}
		if seen[n.OriginalName] {
			return types.ResolutionResult{}, fmt.Errorf("invalid reply: entry %d: duplicate %q", i, n.OriginalName)
		}
		seen[n.OriginalName] = true
	}
	return r, nil
}

// complete orders entries by input, fills in inputs the model skipped, and
// makes sure every unresolved affiliation is named in an issue. Any issue
// sets NeedsClarification.
func complete(affs []types.Affiliation, r types.ResolutionResult) types.ResolutionResult {
	byName := make(map[string]types.NormalizedAffiliation, len(r.NormalizedAffiliations))
	for _, n := range r.NormalizedAffiliations {
		byName[n.OriginalName] = n
	}

	issues := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if strings.TrimSpace(issue) != "" {
			issues = append(issues, issue)
		}
	}
	reported := append([]string(nil), issues...)

	out := make([]types.NormalizedAffiliation, 0, len(affs))
	for _, a := range affs {
		n, ok := byName[a.Name]
		if !ok {
			out = append(out, types.NormalizedAffiliation{
				OriginalName:   a.Name,
				NormalizedName: a.Name,
				IsValid:        false,
				Confidence:     0,
			})
			issues = append(issues, "No resolution returned for affiliation: "+a.Name)
			continue
		}
		out = append(out, n)
		if !n.IsValid && !mentioned(reported, a.Name) {
			issues = append(issues, "Could not resolve affiliation: "+a.Name)
		}
	}

	return types.ResolutionResult{
		NormalizedAffiliations: out,
		NeedsClarification:     r.NeedsClarification || len(issues) > 0,
		Issues:                 issues,
	}
}

// mentioned reports whether any issue names the affiliation as a whole
// word: "MIT" is not mentioned by an issue about "MITRE Corporation".
func mentioned(issues []string, name string) bool {
	if name == "" {
		return false
	}
	for _, issue := range issues {
		for i := 0; ; {
			j := strings.Index(issue[i:], name)
			if j < 0 {
				break
			}
			start, end := i+j, i+j+len(name)
			if !wordRuneBefore(issue, start) && !wordRuneAt(issue, end) {
				return true
			}
			i = start + 1
		}
	}
	return false
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
