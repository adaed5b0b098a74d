// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch produces the raw Markdown for each section. A Backend turns
// one rendered prompt into a completion; PromptFetcher resolves a prompt key
// through the outline's templates, calls the backend with retries and cleans
// the answer. DirFetcher serves answers saved on disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/article-engine/pkg/types"
)

// ErrEmptyResponse reports a completion with no usable text.
var ErrEmptyResponse = errors.New("empty response")

// Completion is one model answer with its token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
	Cached       bool
}

// Backend abstracts the Generative AI API so tests can supply a mock.
type Backend interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (Completion, error)

func (f BackendFunc) Complete(ctx context.Context, prompt string) (Completion, error) {
	return f(ctx, prompt)
}

// PromptFetcher renders a prompt template per key and asks the backend.
type PromptFetcher struct {
	backend    Backend
	prompts    *PromptSet
	subject    string
	maxRetries int
}

// NewPromptFetcher returns a fetcher that fills templates with subject.
// maxRetries below zero means no retries.
func NewPromptFetcher(backend Backend, prompts *PromptSet, subject string, maxRetries int) *PromptFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &PromptFetcher{backend: backend, prompts: prompts, subject: subject, maxRetries: maxRetries}
}

// Fetch returns the cleaned Markdown answer for promptKey.
func (f *PromptFetcher) Fetch(ctx context.Context, promptKey string) (types.FetchResult, error) {
	prompt, err := f.prompts.Render(promptKey, PromptData{Subject: f.subject})
	if err != nil {
		return types.FetchResult{}, err
	}

	c, err := callWithRetry(ctx, f.backend, prompt, f.maxRetries)
	if err != nil {
		return types.FetchResult{}, fmt.Errorf("prompt %q: %w", promptKey, err)
	}

	return types.FetchResult{
		Text:         c.Text,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		Cached:       c.Cached,
	}, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff. Cancellation
// is never retried.
func callWithRetry(ctx context.Context, backend Backend, prompt string, maxRetries int) (Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Completion{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		c, err := backend.Complete(ctx, prompt)
		if err == nil {
			c.Text = StripFence(c.Text)
			if c.Text != "" {
				return c, nil
			}
			err = ErrEmptyResponse
		}
		if ctx.Err() != nil {
			return Completion{}, ctx.Err()
		}
		lastErr = err
	}
	return Completion{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
