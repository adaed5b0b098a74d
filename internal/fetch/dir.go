// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/article-engine/pkg/types"
)

// DirFetcher serves saved answers from Dir/<promptKey>.md. It lets a run be
// replayed, or assembled from hand-written text, without calling a model.
type DirFetcher struct {
	Dir string
}

// Fetch reads the file for promptKey. A missing file wraps os.ErrNotExist.
func (d DirFetcher) Fetch(ctx context.Context, promptKey string) (types.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FetchResult{}, err
	}
	if promptKey == "" || strings.ContainsAny(promptKey, `/\`) || promptKey == "." || promptKey == ".." {
		return types.FetchResult{}, fmt.Errorf("%w: %q", ErrUnknownPrompt, promptKey)
	}

	data, err := os.ReadFile(filepath.Join(d.Dir, promptKey+".md"))
	if err != nil {
		return types.FetchResult{}, fmt.Errorf("reading response %q: %w", promptKey, err)
	}

	text := StripFence(string(data))
	if text == "" {
		return types.FetchResult{}, fmt.Errorf("response %q: %w", promptKey, ErrEmptyResponse)
	}
	return types.FetchResult{Text: text}, nil
}

// SaveResponse writes text where DirFetcher will find it.
func SaveResponse(dir, promptKey, text string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating responses directory: %w", err)
	}
	path := filepath.Join(dir, promptKey+".md")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing response %q: %w", promptKey, err)
	}
	return nil
}
