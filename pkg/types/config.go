package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "affiliation-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the document source.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// CacheDir is the directory holding cached PDFs and the cache manifest
	// (default ".arxiv_cache").
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// DownloadInterval is the minimum spacing between arXiv downloads
	// (default 3s). Zero disables rate limiting.
	DownloadInterval time.Duration `json:"download_interval" yaml:"download_interval"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model selects backend and model as "provider:model"
	// (e.g. "anthropic:claude-sonnet-4-5-20250929", "openai:gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// Attempts is the total number of calls per request, the first one
	// included (default 5).
	Attempts int `json:"attempts" yaml:"attempts"`

	// CallTimeout bounds a single attempt (default 2m). A timeout counts as
	// a transient failure.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
}

// TelemetryConfig holds settings for span export.
type TelemetryConfig struct {
	// Token is the observability write token. Empty disables telemetry.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Endpoint is the URL spans are posted to.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// PipelineConfig groups all settings for one pipeline instance.
type PipelineConfig struct {
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Concurrency caps how many papers a batch processes at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}
