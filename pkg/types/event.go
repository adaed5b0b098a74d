// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome classifies what happened to one section during a run.
type Outcome string

const (
	OutcomeFetched     Outcome = "fetched"
	OutcomeCached      Outcome = "cached"
	OutcomeFailed      Outcome = "failed"
	OutcomePlaceholder Outcome = "placeholder"
)

// Event records one section fetch within an assembly run. Observers receive
// events as sections finish, and the cache persists them as the run ledger.
type Event struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	Path         string        `json:"path" yaml:"path"`
	Title        string        `json:"title" yaml:"title"`
	PromptKey    string        `json:"prompt" yaml:"prompt"`
	Outcome      Outcome       `json:"outcome" yaml:"outcome"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	InputTokens  int           `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int           `json:"output_tokens" yaml:"output_tokens"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Time         time.Time     `json:"time" yaml:"time"`
}

// TotalTokens returns input plus output tokens.
func (e Event) TotalTokens() int {
	return e.InputTokens + e.OutputTokens
}
