// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/article-engine/internal/outline"
	"github.com/pdiddy/article-engine/internal/wikitext"
	"github.com/pdiddy/article-engine/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var sampleAnswers = map[string]string{
	"intro":    "# 1. Overview\n\nGHLD is a **holding** company.\n\n## 1.1 Segments\n\n- Retail\n- Wholesale",
	"cost":     "## 2. Major costs\n\nEnergy and *parts*.",
	"customer": "Customers are retailers. See [site](https://ghld.example).",
}

const sampleArticle = "== Intro ==\n" +
	"=== Overview ===\n\nGHLD is a '''holding''' company.\n\n==== Segments ====\n\n* Retail\n* Wholesale\n\n" +
	"=== Cost ===\n" +
	"==== Major costs ====\n\nEnergy and ''parts''.\n\n" +
	"=== Customer ===\n" +
	"Customers are retailers. See [https://ghld.example site].\n"

func companySpec() *types.OutlineSpec {
	return &types.OutlineSpec{
		Subject: "GHLD",
		Sections: []types.SectionSpec{
			{Title: "Intro", PromptKey: "intro", Sections: []types.SectionSpec{
				{Title: "Cost", PromptKey: "cost"},
				{Title: "Customer", PromptKey: "customer"},
			}},
		},
	}
}

// mapFetcher answers from a map and fails for keys listed in fail.
func mapFetcher(answers map[string]string, fail map[string]error) FetchFunc {
	return func(_ context.Context, key string) (types.FetchResult, error) {
		if err := fail[key]; err != nil {
			return types.FetchResult{}, err
		}
		text, ok := answers[key]
		if !ok {
			return types.FetchResult{}, errors.New("no answer for " + key)
		}
		return types.FetchResult{Text: text, InputTokens: 1, OutputTokens: 10}, nil
	}
}

type recorder struct {
	events []types.Event
}

func (r *recorder) Observe(ev types.Event) { r.events = append(r.events, ev) }

func TestAssembleEndToEnd(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		rec := &recorder{}
		a, err := New(mapFetcher(sampleAnswers, nil), types.FailAbort,
			WithConcurrency(concurrency), WithObserver(rec), WithRunID("run-1"))
		require.NoError(t, err)

		doc, report, err := a.Assemble(context.Background(), companySpec())
		require.NoError(t, err)
		assert.Equal(t, sampleArticle, doc, "concurrency %d", concurrency)

		assert.Equal(t, "run-1", report.RunID)
		assert.Equal(t, 3, report.Fetched)
		assert.Equal(t, 3, report.Total())
		assert.Equal(t, 33, report.TotalTokens())
		assert.False(t, report.HasFailures())

		require.Len(t, rec.events, 3)
		for _, ev := range rec.events {
			assert.Equal(t, "run-1", ev.RunID)
			assert.Equal(t, types.OutcomeFetched, ev.Outcome)
		}
	}
}

func TestNewPolicy(t *testing.T) {
	_, err := New(mapFetcher(nil, nil), "")
	assert.ErrorIs(t, err, ErrNoPolicy)

	_, err = New(mapFetcher(nil, nil), "retry")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestPopulateAbort(t *testing.T) {
	quota := errors.New("quota exceeded")
	a, err := New(mapFetcher(sampleAnswers, map[string]error{"cost": quota}), types.FailAbort)
	require.NoError(t, err)

	doc, report, err := a.Assemble(context.Background(), companySpec())
	require.Error(t, err)
	assert.Empty(t, doc)
	assert.ErrorIs(t, err, quota)

	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "1.1", ferr.Path)
	assert.Equal(t, "Cost", ferr.Title)
	assert.Equal(t, "cost", ferr.PromptKey)
	assert.Equal(t, 1, report.Failed)
}

func TestPopulatePlaceholder(t *testing.T) {
	rec := &recorder{}
	a, err := New(mapFetcher(sampleAnswers, map[string]error{"cost": errors.New("boom")}), types.FailPlaceholder,
		WithPlaceholder("''Pending.''"), WithObserver(rec))
	require.NoError(t, err)

	doc, report, err := a.Assemble(context.Background(), companySpec())
	require.NoError(t, err)
	assert.Contains(t, doc, "=== Cost ===\n''Pending.''\n\n=== Customer ===")
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Fetched)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "cost", report.Failures[0].PromptKey)

	var outcomes []types.Outcome
	for _, ev := range rec.events {
		outcomes = append(outcomes, ev.Outcome)
	}
	assert.Equal(t, []types.Outcome{types.OutcomeFetched, types.OutcomePlaceholder, types.OutcomeFetched}, outcomes)
	assert.Equal(t, "boom", rec.events[1].Error)
}

func TestPopulateInvalidDepthIsASectionFailure(t *testing.T) {
	tree := outline.New()
	_, err := tree.Insert(outline.Path{}, &outline.Node{Title: "Deep", Depth: 4, PromptKey: "deep"})
	require.NoError(t, err)

	a, err := New(mapFetcher(map[string]string{"deep": "# A\n## B\n### C"}, nil), types.FailPlaceholder)
	require.NoError(t, err)

	report, err := a.Populate(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], wikitext.ErrInvalidDepth)
	assert.Equal(t, "===== Deep =====\n"+DefaultPlaceholder+"\n", tree.Serialize())
}

func TestPopulateStructuralSections(t *testing.T) {
	spec := &types.OutlineSpec{Sections: []types.SectionSpec{
		{Title: "Company", Sections: []types.SectionSpec{{Title: "Cost", PromptKey: "cost"}}},
	}}
	a, err := New(mapFetcher(sampleAnswers, nil), types.FailAbort)
	require.NoError(t, err)

	doc, report, err := a.Assemble(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Structural)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, "== Company ==\n\n=== Cost ===\n==== Major costs ====\n\nEnergy and ''parts''.\n", doc)
}

func TestPopulateCachedResults(t *testing.T) {
	fetcher := FetchFunc(func(_ context.Context, key string) (types.FetchResult, error) {
		return types.FetchResult{Text: sampleAnswers[key], Cached: key == "intro", InputTokens: 4, OutputTokens: 6}, nil
	})
	var events []types.Event
	var mu sync.Mutex
	a, err := New(fetcher, types.FailAbort, WithObserver(ObserverFunc(func(ev types.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})))
	require.NoError(t, err)

	_, report, err := a.Assemble(context.Background(), companySpec())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Cached)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 8, report.InputTokens)
	assert.Equal(t, 12, report.OutputTokens)

	require.Len(t, events, 3)
	for _, ev := range events {
		if ev.Outcome == types.OutcomeCached {
			assert.Zero(t, ev.TotalTokens(), ev.PromptKey)
		} else {
			assert.Equal(t, 10, ev.TotalTokens(), ev.PromptKey)
		}
	}
}

func TestPopulateRunsConcurrently(t *testing.T) {
	var inFlight int32
	ready := make(chan struct{})
	var once sync.Once
	fetcher := FetchFunc(func(ctx context.Context, key string) (types.FetchResult, error) {
		if atomic.AddInt32(&inFlight, 1) == 3 {
			once.Do(func() { close(ready) })
		}
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			return types.FetchResult{}, errors.New("fetches did not overlap")
		case <-ctx.Done():
			return types.FetchResult{}, ctx.Err()
		}
		return types.FetchResult{Text: sampleAnswers[key]}, nil
	})

	a, err := New(fetcher, types.FailAbort, WithConcurrency(3))
	require.NoError(t, err)

	doc, _, err := a.Assemble(context.Background(), companySpec())
	require.NoError(t, err)
	assert.Equal(t, sampleArticle, doc)
}

func TestPopulateCancelCommitsNothing(t *testing.T) {
	started := make(chan struct{}, 3)
	fetcher := FetchFunc(func(ctx context.Context, key string) (types.FetchResult, error) {
		if key == "intro" {
			return types.FetchResult{Text: sampleAnswers[key]}, nil
		}
		started <- struct{}{}
		<-ctx.Done()
		return types.FetchResult{}, ctx.Err()
	})

	for _, policy := range []types.FailurePolicy{types.FailAbort, types.FailPlaceholder} {
		t.Run(string(policy), func(t *testing.T) {
			tree, err := outline.Build(companySpec())
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			a, err := New(fetcher, policy, WithConcurrency(3))
			require.NoError(t, err)

			go func() {
				<-started
				<-started
				cancel()
			}()

			report, err := a.Populate(ctx, tree)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, 0, report.Failed)

			for _, p := range []outline.Path{{0, 0}, {0, 1}} {
				n, err := tree.Lookup(p)
				require.NoError(t, err)
				assert.Empty(t, n.Body, "section %s", p)
			}
		})
	}
}

func TestRenderBody(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		depth int
		want  string
	}{
		{
			name:  "top level answer under a subsection",
			raw:   "# 1. Energy\n\nCoal.",
			depth: 2,
			want:  "==== Energy ====\n\nCoal.",
		},
		{
			name:  "no headings",
			raw:   "Just **text**.",
			depth: 3,
			want:  "Just '''text'''.",
		},
		{
			name:  "setext heading pulled under the section",
			raw:   "Outlook 2026\n============\n\nGrowing.",
			depth: 1,
			want:  "=== Outlook 2026 ===\n\nGrowing.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderBody(tt.raw, tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObservers(t *testing.T) {
	ev := types.Event{RunID: "r", Path: "1.1", Title: "Cost", PromptKey: "cost", Outcome: types.OutcomeFetched, InputTokens: 5, OutputTokens: 7}
	failed := types.Event{RunID: "r", Path: "1.2", Title: "Customer", Outcome: types.OutcomePlaceholder, Error: "boom"}

	var buf bytes.Buffer
	core, logs := observer.New(zap.DebugLevel)
	count := 0
	obs := Observers(ProgressObserver(&buf), LogObserver(zap.New(core)), nil, ObserverFunc(func(types.Event) { count++ }))

	obs.Observe(ev)
	obs.Observe(failed)

	assert.Equal(t, "fetched  1.1 Cost (12 tokens)\nplaceholder 1.2 Customer: boom\n", buf.String())
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, logs.FilterMessage("section fetched").Len())
	warn := logs.FilterMessage("section fetch failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "boom", warn[0].ContextMap()["error"])
}
