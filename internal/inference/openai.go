// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/httputil"
)

// openaiAPIURL is the Chat Completions endpoint. Package-level var for test substitution.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI calls the Chat Completions API with a json_schema response format.
type OpenAI struct {
	APIKey string
	Model  string
	Client *http.Client
	Logger *zap.Logger
}

type openaiRequest struct {
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_completion_tokens"`
	Messages       []openaiMessage `json:"messages"`
	ResponseFormat openaiFormat    `json:"response_format"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiFormat struct {
	Type       string           `json:"type"`
	JSONSchema openaiJSONSchema `json:"json_schema"`
}

type openaiJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type openaiResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate sends req and returns the message content as JSON.
func (o *OpenAI) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	name := req.SchemaName
	if name == "" {
		name = "result"
	}

	messages := make([]openaiMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(openaiRequest{
		Model:     o.Model,
		MaxTokens: maxTokens(req),
		Messages:  messages,
		ResponseFormat: openaiFormat{
			Type:       "json_schema",
			JSONSchema: openaiJSONSchema{Name: name, Schema: req.Schema},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, o.Client, httpReq, 0, o.Logger)
	if err != nil {
		return nil, fmt.Errorf("openai generate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading openai response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, classify("openai", resp.StatusCode, respBody)
	}

	var parsed openaiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	if o.Logger != nil {
		o.Logger.Debug("openai reply",
			zap.Duration("latency", time.Since(start)),
			zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
			zap.Int("completion_tokens", parsed.Usage.CompletionTokens))
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices: %w", ErrEmptyReply)
	}
	choice := parsed.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("openai refused: %s", choice.Message.Refusal)
	}
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("openai reply truncated at %d tokens", maxTokens(req))
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyReply)
	}
	if !json.Valid([]byte(choice.Message.Content)) {
		return nil, fmt.Errorf("openai reply is not valid JSON: %.200s", choice.Message.Content)
	}
	return json.RawMessage(choice.Message.Content), nil
}
