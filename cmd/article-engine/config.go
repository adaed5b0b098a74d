// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/assemble"
	"github.com/pdiddy/article-engine/internal/cache"
	"github.com/pdiddy/article-engine/internal/fetch"
	"github.com/pdiddy/article-engine/internal/outline"
	"github.com/pdiddy/article-engine/internal/secrets"
	"github.com/pdiddy/article-engine/pkg/types"
)

const defaultOutput = "wiki_base.txt"

var defaultModels = map[types.BackendKind]string{
	types.BackendClaude: "claude-sonnet-4-5-20250929",
	types.BackendGemini: "gemini-2.5-flash",
}

func setDefaults() {
	viper.SetDefault("http.timeout", 5*time.Minute)
	viper.SetDefault("http.user_agent", "article-engine/"+version)
	viper.SetDefault("http.max_rate_limit_retries", 5)

	viper.SetDefault("ai.backend", string(types.BackendClaude))
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.responses_dir", "responses")

	viper.SetDefault("assembly.placeholder", assemble.DefaultPlaceholder)
	viper.SetDefault("assembly.concurrency", 1)
	viper.SetDefault("assembly.output", defaultOutput)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.path", ".article-engine/cache.db")
}

// bindFlags binds flags to config keys. Commands bind when they run, since
// several commands share keys and viper keeps only the last binding per key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig reads the pipeline configuration from viper (file, env, flags).
func loadConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaultModels[cfg.AI.Backend]
	}
	return cfg, nil
}

// loadOutline reads the outline file, or the built-in company outline when
// path is empty.
func loadOutline(path string) (*types.OutlineSpec, error) {
	if path == "" {
		return outline.DefaultSpec()
	}
	return outline.LoadSpec(path)
}

// newBackend builds the model backend selected by cfg.AI.Backend.
func newBackend(ctx context.Context, cfg types.PipelineConfig) (fetch.Backend, error) {
	switch cfg.AI.Backend {
	case types.BackendClaude:
		key := secretDefault(secrets.AnthropicKey, cfg.AI.APIKey)
		if key == "" {
			return nil, fmt.Errorf("no Anthropic API key: set ai.api_key, ANTHROPIC_API_KEY in .env, or .secrets/%s", secrets.AnthropicKey)
		}
		return &fetch.ClaudeBackend{
			APIKey:              key,
			Model:               cfg.AI.Model,
			MaxTokens:           cfg.AI.MaxTokens,
			UserAgent:           cfg.HTTP.UserAgent,
			Client:              &http.Client{Timeout: cfg.HTTP.Timeout},
			MaxRateLimitRetries: cfg.HTTP.MaxRateLimitRetries,
		}, nil
	case types.BackendGemini:
		key := secretDefault(secrets.GeminiKey, cfg.AI.APIKey)
		if key == "" {
			return nil, fmt.Errorf("no Gemini API key: set ai.api_key, GEMINI_API_KEY in .env, or .secrets/%s", secrets.GeminiKey)
		}
		return fetch.NewGeminiBackend(ctx, key, cfg.AI.Model, "")
	default:
		return nil, fmt.Errorf("backend %q does not call a model (want claude or gemini)", cfg.AI.Backend)
	}
}

// openCache opens the response cache and run ledger, or returns nil when
// the cache is disabled.
func openCache(cfg types.PipelineConfig) (*cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.Open(cfg.Cache.Path, logger)
}

// newFetcher returns the section fetcher for spec: saved answers for the
// dir backend, otherwise prompt templates sent to a model through the cache.
func newFetcher(ctx context.Context, cfg types.PipelineConfig, spec *types.OutlineSpec, store *cache.Store) (assemble.Fetcher, error) {
	if cfg.AI.Backend == types.BackendDir {
		return fetch.DirFetcher{Dir: cfg.AI.ResponsesDir}, nil
	}

	prompts, err := fetch.NewPromptSet(spec.Prompts)
	if err != nil {
		return nil, err
	}
	if missing := prompts.Missing(spec.PromptKeys()); len(missing) > 0 {
		return nil, fmt.Errorf("outline references prompts with no template: %v", missing)
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		backend = cache.Wrap(store, backend, string(cfg.AI.Backend)+"/"+cfg.AI.Model)
	}
	return fetch.NewPromptFetcher(backend, prompts, spec.Subject, cfg.AI.MaxRetries), nil
}
