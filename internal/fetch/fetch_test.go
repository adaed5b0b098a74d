// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/article-engine/internal/httputil"
)

// --- mock backends ---

// failNTimesBackend fails the first N calls, then answers.
type failNTimesBackend struct {
	failures  int
	callCount int
	answer    string
	prompts   []string
}

func (f *failNTimesBackend) Complete(_ context.Context, prompt string) (Completion, error) {
	f.callCount++
	f.prompts = append(f.prompts, prompt)
	if f.callCount <= f.failures {
		return Completion{}, fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return Completion{Text: f.answer, InputTokens: 10, OutputTokens: 20}, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func testPrompts(t *testing.T) *PromptSet {
	t.Helper()
	set, err := NewPromptSet(map[string]string{
		"intro": "What does {{.Subject}} do?",
		"cost":  "List the costs of {{.Subject}}.",
	})
	if err != nil {
		t.Fatalf("NewPromptSet: %v", err)
	}
	return set
}

// --- callWithRetry ---

func TestCallWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
	}{
		{"succeeds first try", 0, 3, false},
		{"succeeds after 2 failures", 2, 3, false},
		{"fails after exhausting retries", 4, 3, true},
		{"succeeds on last retry", 3, 3, false},
		{"no retries", 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &failNTimesBackend{failures: tt.failures, answer: "# Answer"}

			_, err := callWithRetry(context.Background(), backend, "prompt", tt.maxRetries)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if want := min(tt.failures+1, tt.maxRetries+1); backend.callCount != want {
				t.Errorf("callCount = %d, want %d", backend.callCount, want)
			}
		})
	}
}

func TestCallWithRetryEmptyAnswer(t *testing.T) {
	backend := &failNTimesBackend{answer: "```markdown\n\n```"}
	_, err := callWithRetry(context.Background(), backend, "prompt", 1)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
	if backend.callCount != 2 {
		t.Errorf("callCount = %d, want 2", backend.callCount)
	}
}

func TestCallWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	backend := BackendFunc(func(context.Context, string) (Completion, error) {
		calls++
		cancel()
		return Completion{}, errors.New("boom")
	})

	_, err := callWithRetry(ctx, backend, "prompt", 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// --- PromptFetcher ---

func TestPromptFetcher(t *testing.T) {
	backend := &failNTimesBackend{failures: 1, answer: "```markdown\n# 1. Overview\nText.\n```"}
	f := NewPromptFetcher(backend, testPrompts(t), "GHLD", 2)

	got, err := f.Fetch(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Text != "# 1. Overview\nText." {
		t.Errorf("Text = %q", got.Text)
	}
	if got.TotalTokens() != 30 {
		t.Errorf("TotalTokens() = %d, want 30", got.TotalTokens())
	}
	if backend.prompts[0] != "What does GHLD do?" {
		t.Errorf("prompt = %q", backend.prompts[0])
	}
}

func TestPromptFetcherUnknownKey(t *testing.T) {
	backend := &failNTimesBackend{answer: "x"}
	f := NewPromptFetcher(backend, testPrompts(t), "GHLD", 2)

	_, err := f.Fetch(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownPrompt) {
		t.Fatalf("err = %v, want ErrUnknownPrompt", err)
	}
	if backend.callCount != 0 {
		t.Errorf("backend called %d times for an unknown key", backend.callCount)
	}
}

// --- PromptSet ---

func TestPromptSet(t *testing.T) {
	set := testPrompts(t)

	got, err := set.Render("cost", PromptData{Subject: "ACME"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "List the costs of ACME." {
		t.Errorf("Render = %q", got)
	}

	missing := set.Missing([]string{"intro", "customer", "cost", "customer", "outlook"})
	if fmt.Sprint(missing) != "[customer outlook]" {
		t.Errorf("Missing = %v", missing)
	}
}

func TestPromptSetErrors(t *testing.T) {
	if _, err := NewPromptSet(map[string]string{"bad": "{{.Subject"}); err == nil {
		t.Error("expected parse error")
	}

	set, err := NewPromptSet(map[string]string{"typo": "{{.Subjet}}"})
	if err != nil {
		t.Fatalf("NewPromptSet: %v", err)
	}
	if _, err := set.Render("typo", PromptData{Subject: "x"}); err == nil {
		t.Error("expected execution error for unknown field")
	}
}

// --- StripFence ---

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "# Title\ntext", "# Title\ntext"},
		{"markdown fence", "```markdown\n# Title\ntext\n```", "# Title\ntext"},
		{"md fence", "```md\n# Title\n```", "# Title"},
		{"bare fence", "```\n# Title\n```\n", "# Title"},
		{"code answer kept", "```go\nfmt.Println()\n```", "```go\nfmt.Println()\n```"},
		{"inner fences kept", "```\na\n```\n\ntext\n\n```\nb\n```", "```\na\n```\n\ntext\n\n```\nb\n```"},
		{"surrounding space", "  \n# T\n  ", "# T"},
		{"single line", "```x```", "```x```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFence(tt.in); got != tt.want {
				t.Errorf("StripFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- DirFetcher ---

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	if err := SaveResponse(dir, "intro", "# Intro\n\nGHLD sells things.\n"); err != nil {
		t.Fatalf("SaveResponse: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "blank.md"), []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := DirFetcher{Dir: dir}
	got, err := f.Fetch(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Text != "# Intro\n\nGHLD sells things." {
		t.Errorf("Text = %q", got.Text)
	}

	if _, err := f.Fetch(context.Background(), "cost"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing key err = %v, want os.ErrNotExist", err)
	}
	if _, err := f.Fetch(context.Background(), "blank"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("blank err = %v, want ErrEmptyResponse", err)
	}
	if _, err := f.Fetch(context.Background(), "../intro"); !errors.Is(err, ErrUnknownPrompt) {
		t.Errorf("traversal err = %v, want ErrUnknownPrompt", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, "intro"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v, want context.Canceled", err)
	}
}
