// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package telemetry records one span per pipeline stage and exports them
// over HTTP when an observability token is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/pkg/types"
)

// DefaultEndpoint receives exported spans when no endpoint is configured.
const DefaultEndpoint = "https://logfire-api.pydantic.dev/v1/spans"

// flushThreshold is the buffer size that triggers an export from Record.
const flushThreshold = 64

// Span is one timed pipeline stage.
type Span struct {
	RunID    string        `json:"run_id"`
	Stage    string        `json:"stage"`
	ArxivID  string        `json:"arxiv_id"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration_ns"`
	Err      string        `json:"error,omitempty"`
}

// Recorder collects spans.
type Recorder interface {
	Record(s Span)
	Flush(ctx context.Context) error
}

// New returns an Exporter when cfg.Token is set and a no-op recorder
// otherwise.
func New(cfg types.TelemetryConfig, client *http.Client, logger *zap.Logger) Recorder {
	if cfg.Token == "" {
		return Nop{}
	}
	return NewExporter(cfg, client, logger)
}

// StartSpan begins a span and returns the function that ends it.
func StartSpan(r Recorder, runID, stage, arxivID string) func(err error) {
	start := time.Now()
	return func(err error) {
		s := Span{
			RunID:    runID,
			Stage:    stage,
			ArxivID:  arxivID,
			Start:    start,
			Duration: time.Since(start),
		}
		if err != nil {
			s.Err = err.Error()
		}
		r.Record(s)
	}
}

// Nop discards spans.
type Nop struct{}

func (Nop) Record(Span)                 {}
func (Nop) Flush(context.Context) error { return nil }

// Exporter buffers spans and posts them as a JSON array with a bearer token.
type Exporter struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *zap.Logger

	mu  sync.Mutex
	buf []Span
}

// NewExporter returns an Exporter for cfg. A nil client uses one with a
// ten second timeout.
func NewExporter(cfg types.TelemetryConfig, client *http.Client, logger *zap.Logger) *Exporter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{endpoint: endpoint, token: cfg.Token, client: client, logger: logger}
}

// Record buffers s. A full buffer is exported in the background; export
// failures are logged and the spans dropped.
func (e *Exporter) Record(s Span) {
	e.mu.Lock()
	e.buf = append(e.buf, s)
	full := len(e.buf) >= flushThreshold
	e.mu.Unlock()

	if full {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.Flush(ctx); err != nil {
				e.logger.Warn("telemetry export failed", zap.Error(err))
			}
		}()
	}
}

// Flush exports every buffered span.
func (e *Exporter) Flush(ctx context.Context) error {
	e.mu.Lock()
	spans := e.buf
	e.buf = nil
	e.mu.Unlock()

	if len(spans) == 0 {
		return nil
	}

	body, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("marshaling spans: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("exporting %d span(s): %w", len(spans), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("exporting %d span(s): HTTP %d", len(spans), resp.StatusCode)
	}
	e.logger.Debug("telemetry exported", zap.Int("spans", len(spans)))
	return nil
}
