// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/article-engine/internal/fetch"
)

// Backend serves completions from the store and records fresh ones.
type Backend struct {
	store *Store
	inner fetch.Backend
	model string
}

// Wrap returns a backend that consults s before calling inner. model is part
// of the cache key, so switching models never serves another model's text.
func Wrap(s *Store, inner fetch.Backend, model string) *Backend {
	return &Backend{store: s, inner: inner, model: model}
}

// Complete returns the cached answer for prompt or asks the inner backend.
// Cache read and write failures are logged and never fail the call.
func (b *Backend) Complete(ctx context.Context, prompt string) (fetch.Completion, error) {
	c, ok, err := b.store.Get(ctx, b.model, prompt)
	if err != nil {
		b.store.log.Warn("cache lookup failed", zap.Error(err))
	}
	if ok {
		return c, nil
	}

	c, err = b.inner.Complete(ctx, prompt)
	if err != nil {
		return fetch.Completion{}, err
	}
	if fetch.StripFence(c.Text) == "" {
		return c, nil
	}
	if err := b.store.Put(ctx, b.model, prompt, c); err != nil {
		b.store.log.Warn("cache write failed", zap.Error(err))
	}
	return c, nil
}
