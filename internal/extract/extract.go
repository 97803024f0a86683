// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract identifies the authors of a paper and the affiliations
// listed for each of them, using a hosted model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/inference"
	"github.com/pdiddy/affiliation-engine/internal/retry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// Extractor turns raw paper text into authors with affiliations. The
// returned AuthorSet has no ArxivID; the caller assigns it.
type Extractor interface {
	Extract(ctx context.Context, text string) (types.AuthorSet, error)
}

// Service implements Extractor on top of an inference.Client.
type Service struct {
	client inference.Client
	policy retry.Policy
	logger *zap.Logger
}

// NewService returns a Service. cfg.Attempts is the attempt budget
// (default 5) and cfg.CallTimeout bounds each attempt.
func NewService(client inference.Client, cfg types.AIConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		policy: retry.Policy{
			Attempts: cfg.Attempts,
			Timeout:  cfg.CallTimeout,
			Name:     "extract",
			Logger:   logger,
		},
		logger: logger,
	}
}

// reply is the model output.
type reply struct {
	Authors []types.Author `json:"authors"`
}

// Extract sends the full text to the model and validates the reply.
// Transport errors, timeouts, malformed replies and validation failures are
// retried; a permanent backend rejection stops immediately. Any failure
// wraps types.ErrExtraction.
func (s *Service) Extract(ctx context.Context, text string) (types.AuthorSet, error) {
	prompt, err := renderPrompt(text)
	if err != nil {
		return types.AuthorSet{}, fmt.Errorf("%w: rendering prompt: %w", types.ErrExtraction, err)
	}

	req := inference.Request{
		System:     systemPrompt,
		Prompt:     prompt,
		SchemaName: authorSetSchemaName,
		Schema:     authorSetSchema,
	}

	set, err := retry.Do(ctx, s.policy, func(ctx context.Context) (types.AuthorSet, error) {
		raw, err := s.client.Generate(ctx, req)
		if err != nil {
			return types.AuthorSet{}, err
		}
		return decodeReply(raw)
	})
	if err != nil {
		var apiErr *inference.APIError
		if errors.As(err, &apiErr) && apiErr.ContextLength() {
			return types.AuthorSet{}, fmt.Errorf("%w: text of %d characters: %w", types.ErrExtraction, len(text), err)
		}
		return types.AuthorSet{}, fmt.Errorf("%w: %w", types.ErrExtraction, err)
	}

	s.logger.Debug("authors extracted", zap.Int("authors", set.AuthorCount()))
	return set, nil
}

// decodeReply parses and validates one model reply. Nil lists become empty
// lists so the result serializes as [] rather than null.
func decodeReply(raw json.RawMessage) (types.AuthorSet, error) {
	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return types.AuthorSet{}, fmt.Errorf("parsing reply JSON: %w", err)
	}

	authors := make([]types.Author, 0, len(r.Authors))
	for i, a := range r.Authors {
		if err := a.Validate(); err != nil {
			return types.AuthorSet{}, fmt.Errorf("invalid reply: author %d: %w", i, err)
		}
		if a.Affiliations == nil {
			a.Affiliations = []types.Affiliation{}
		}
		authors = append(authors, a)
	}
	return types.AuthorSet{Authors: authors}, nil
}
