package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "article-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRateLimitRetries bounds retries on 429/503/529 responses (default 5).
	MaxRateLimitRetries int `json:"max_rate_limit_retries" yaml:"max_rate_limit_retries" mapstructure:"max_rate_limit_retries"`
}

// BackendKind identifies the assistant that produces section text.
type BackendKind string

const (
	BackendClaude BackendKind = "claude"
	BackendGemini BackendKind = "gemini"
	BackendDir    BackendKind = "dir"
)

// AIConfig holds shared settings for backends that call a Generative AI API.
type AIConfig struct {
	// Backend selects the assistant: claude, gemini, or dir.
	Backend BackendKind `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxTokens caps the length of each generated section (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// ResponsesDir is the directory read by the dir backend ([promptKey].md files).
	ResponsesDir string `json:"responses_dir,omitempty" yaml:"responses_dir,omitempty" mapstructure:"responses_dir"`
}

// FailurePolicy selects what the assembler does when a section cannot be fetched.
type FailurePolicy string

const (
	// FailAbort stops the run and surfaces the fetch error (strict document).
	FailAbort FailurePolicy = "abort"

	// FailPlaceholder substitutes a placeholder body and continues (best-effort document).
	FailPlaceholder FailurePolicy = "placeholder"
)

// AssemblyConfig holds settings for the article assembly stage.
type AssemblyConfig struct {
	// OnFailure is the fetch failure policy. It has no default; callers choose.
	OnFailure FailurePolicy `json:"on_failure" yaml:"on_failure" mapstructure:"on_failure"`

	// Placeholder is the body substituted for failed sections under FailPlaceholder.
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty" mapstructure:"placeholder"`

	// Concurrency is the number of sections fetched in parallel (default 1).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Output is the path the generated document is written to.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// CacheConfig holds settings for the response cache and run ledger.
type CacheConfig struct {
	// Enabled turns the response cache on.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file (e.g. ".article-engine/cache.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	HTTP     HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Assembly AssemblyConfig `json:"assembly" yaml:"assembly" mapstructure:"assembly"`
	Cache    CacheConfig    `json:"cache" yaml:"cache" mapstructure:"cache"`
}
