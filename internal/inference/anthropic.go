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

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// Anthropic calls the Claude Messages API. Structured output is obtained by
// forcing a single tool whose input schema is the requested schema.
type Anthropic struct {
	APIKey string
	Model  string
	Client *http.Client
	Logger *zap.Logger
}

type anthropicRequest struct {
	Model      string             `json:"model"`
	MaxTokens  int                `json:"max_tokens"`
	System     string             `json:"system,omitempty"`
	Messages   []anthropicMessage `json:"messages"`
	Tools      []anthropicTool    `json:"tools"`
	ToolChoice anthropicChoice    `json:"tool_choice"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Generate sends req and returns the forced tool's input as JSON.
func (a *Anthropic) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	toolName := req.SchemaName
	if toolName == "" {
		toolName = "result"
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens(req),
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Tools: []anthropicTool{{
			Name:        toolName,
			Description: "Record the structured result.",
			InputSchema: req.Schema,
		}},
		ToolChoice: anthropicChoice{Type: "tool", Name: toolName},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, a.Client, httpReq, 0, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Claude response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classify("Claude", resp.StatusCode, respBody)
	}

	var cResp anthropicResponse
	if err := json.Unmarshal(respBody, &cResp); err != nil {
		return nil, fmt.Errorf("decoding Claude response: %w", err)
	}

	a.logger().Debug("claude reply",
		zap.Duration("latency", time.Since(start)),
		zap.String("stop_reason", cResp.StopReason),
		zap.Int("input_tokens", cResp.Usage.InputTokens),
		zap.Int("output_tokens", cResp.Usage.OutputTokens))

	if cResp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("Claude reply truncated at %d tokens", maxTokens(req))
	}

	for _, block := range cResp.Content {
		if block.Type == "tool_use" && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	// Some models answer in plain text despite the forced tool; accept it
	// when the text is a JSON document.
	for _, block := range cResp.Content {
		if block.Type == "text" && json.Valid([]byte(block.Text)) {
			return json.RawMessage(block.Text), nil
		}
	}
	return nil, fmt.Errorf("Claude API: %w", ErrEmptyReply)
}

func (a *Anthropic) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}
