// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/affiliation-engine/internal/acquire"
	"github.com/pdiddy/affiliation-engine/internal/extract"
	"github.com/pdiddy/affiliation-engine/internal/inference"
	"github.com/pdiddy/affiliation-engine/internal/logging"
	"github.com/pdiddy/affiliation-engine/internal/pipeline"
	"github.com/pdiddy/affiliation-engine/internal/resolve"
	"github.com/pdiddy/affiliation-engine/internal/secrets"
	"github.com/pdiddy/affiliation-engine/internal/telemetry"
	"github.com/pdiddy/affiliation-engine/pkg/types"
)

const defaultUserAgent = "affiliation-engine/0.1"

// pipelineConfig assembles the typed configuration from viper.
func pipelineConfig() types.PipelineConfig {
	token := viper.GetString("logfire_token")
	if token == "" {
		token = loadedSecrets[secrets.LogfireTokenFile]
	}
	return types.PipelineConfig{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch_timeout"),
				UserAgent: defaultUserAgent,
			},
			CacheDir:         viper.GetString("cache_dir"),
			DownloadInterval: viper.GetDuration("download_interval"),
		},
		AI: types.AIConfig{
			Model:       viper.GetString("model"),
			Attempts:    viper.GetInt("attempts"),
			CallTimeout: viper.GetDuration("call_timeout"),
		},
		Telemetry: types.TelemetryConfig{
			Token:    token,
			Endpoint: viper.GetString("telemetry_endpoint"),
		},
		Concurrency: viper.GetInt("concurrency"),
	}
}

// app holds the components a command needs. Fields a command does not
// need stay nil.
type app struct {
	cfg          types.PipelineConfig
	logger       *zap.Logger
	source       *acquire.Source
	recorder     telemetry.Recorder
	orchestrator *pipeline.Orchestrator
}

// newSourceApp builds only the document source.
func newSourceApp() (*app, error) {
	cfg := pipelineConfig()
	logger, err := logging.New(viper.GetBool("debug"))
	if err != nil {
		return nil, err
	}
	source, err := acquire.NewSource(&http.Client{Timeout: cfg.Fetch.Timeout}, cfg.Fetch, logger.Named("acquire"))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, source: source, recorder: telemetry.Nop{}}, nil
}

// newPipelineApp builds the full pipeline. The inference client is
// selected by the configured model.
func newPipelineApp() (*app, error) {
	a, err := newSourceApp()
	if err != nil {
		return nil, err
	}

	client, err := inference.New(a.cfg.AI.Model, secrets.APIKeys(loadedSecrets), &http.Client{}, a.logger.Named("inference"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.recorder = telemetry.New(a.cfg.Telemetry, nil, a.logger.Named("telemetry"))
	a.orchestrator = pipeline.New(
		a.source,
		extract.NewService(client, a.cfg.AI, a.logger.Named("extract")),
		resolve.NewService(client, a.cfg.AI, a.logger.Named("resolve")),
		a.recorder,
		a.logger.Named("pipeline"),
	)
	return a, nil
}

// Close flushes telemetry and releases the cache manifest.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.recorder.Flush(ctx); err != nil {
		a.logger.Warn("telemetry flush failed", zap.Error(err))
	}
	if a.source != nil {
		a.source.Close()
	}
	a.logger.Sync()
}
