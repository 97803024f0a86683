// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inference calls a hosted language model and returns a JSON
// document shaped by a caller-supplied schema. The backend is chosen by the
// model string prefix: "anthropic:<model>" or "openai:<model>".
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/retry"
)

const defaultMaxTokens = 4096

var (
	// ErrNoModel is returned when no model string is configured.
	ErrNoModel = errors.New("no model configured (set MODEL_NAME)")

	// ErrUnknownProvider is returned for a model prefix with no backend.
	ErrUnknownProvider = errors.New("unknown model provider")

	// ErrMissingKey is returned when the selected provider has no API key.
	ErrMissingKey = errors.New("missing API key")

	// ErrEmptyReply is returned when the backend answered without content.
	ErrEmptyReply = errors.New("empty reply")
)

// Request is one structured-output call.
type Request struct {
	// System is the fixed instruction for the task.
	System string

	// Prompt is the user message.
	Prompt string

	// SchemaName names the output object (e.g. "author_set").
	SchemaName string

	// Schema is the JSON schema the reply must follow.
	Schema json.RawMessage

	// MaxTokens bounds the reply. Zero uses 4096.
	MaxTokens int
}

// Client abstracts the hosted model so services and tests can swap it.
type Client interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Keys holds provider API keys.
type Keys struct {
	Anthropic string
	OpenAI    string
}

// ParseModel splits "provider:model" into its parts. A bare model name
// without a prefix is treated as an Anthropic model.
func ParseModel(model string) (provider, name string, err error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", "", ErrNoModel
	}
	provider, name, found := strings.Cut(model, ":")
	if !found {
		return "anthropic", model, nil
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("model %q has no name after the provider prefix", model)
	}
	return provider, name, nil
}

// New returns the backend selected by model. A nil httpClient uses
// http.DefaultClient; a nil logger discards logs.
func New(model string, keys Keys, httpClient *http.Client, logger *zap.Logger) (Client, error) {
	provider, name, err := ParseModel(model)
	if err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("provider", provider), zap.String("model", name))

	switch provider {
	case "anthropic":
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("%w for anthropic (set ANTHROPIC_API_KEY or .secrets/anthropic-api-key)", ErrMissingKey)
		}
		return &Anthropic{APIKey: keys.Anthropic, Model: name, Client: httpClient, Logger: logger}, nil
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("%w for openai (set OPENAI_API_KEY or .secrets/openai-api-key)", ErrMissingKey)
		}
		return &OpenAI{APIKey: keys.OpenAI, Model: name, Client: httpClient, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w %q in model %q", ErrUnknownProvider, provider, model)
	}
}

// APIError is a non-2xx reply from a provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

// maxErrorBody caps how many bytes of a response body Error includes.
const maxErrorBody = 512

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return fmt.Sprintf("%s API returned %d: %s", e.Provider, e.Status, body)
}

// Permanent reports whether repeating the call cannot help: malformed
// requests, bad credentials, unknown models, oversize prompts.
func (e *APIError) Permanent() bool {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusRequestEntityTooLarge:
		return true
	}
	return false
}

// ContextLength reports whether the provider rejected the prompt as too
// long for the model.
func (e *APIError) ContextLength() bool {
	b := strings.ToLower(e.Body)
	return strings.Contains(b, "context_length_exceeded") ||
		strings.Contains(b, "prompt is too long") ||
		strings.Contains(b, "maximum context length")
}

// classify turns a provider status into an error, marking permanent ones
// so retry.Do stops immediately.
func classify(provider string, status int, body []byte) error {
	apiErr := &APIError{Provider: provider, Status: status, Body: string(body)}
	if apiErr.ContextLength() {
		return retry.Permanent(fmt.Errorf("prompt exceeds the model context window: %w", apiErr))
	}
	if apiErr.Permanent() {
		return retry.Permanent(apiErr)
	}
	return apiErr
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
