// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FetchResult is the raw text an assistant produced for one prompt key.
type FetchResult struct {
	// Text is the model output in its native Markdown dialect.
	Text string `json:"text" yaml:"text"`

	// InputTokens and OutputTokens report token spend when the backend knows it.
	InputTokens  int `json:"input_tokens,omitempty" yaml:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty" yaml:"output_tokens,omitempty"`

	// Cached is true when the result was served from the response cache.
	Cached bool `json:"cached,omitempty" yaml:"cached,omitempty"`
}

// TotalTokens returns input plus output tokens.
func (r FetchResult) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}
