// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble populates an outline with model text and renders the
// article. Each section with a prompt key is fetched, normalized, re-leveled
// one level below its own heading and converted to wiki markup before its
// body is set. Fetches may run concurrently; bodies are committed only while
// the run is live.
package assemble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/article-engine/internal/outline"
	"github.com/pdiddy/article-engine/internal/wikitext"
	"github.com/pdiddy/article-engine/pkg/types"
)

// DefaultPlaceholder is the body given to failed sections under the
// placeholder policy when no other text is configured.
const DefaultPlaceholder = "''This section could not be generated.''"

// Fetcher returns the raw Markdown answer for a prompt key. Retries are the
// fetcher's business; the assembler calls it once per section.
type Fetcher interface {
	Fetch(ctx context.Context, promptKey string) (types.FetchResult, error)
}

// FetchFunc adapts a function to Fetcher.
type FetchFunc func(ctx context.Context, promptKey string) (types.FetchResult, error)

func (f FetchFunc) Fetch(ctx context.Context, promptKey string) (types.FetchResult, error) {
	return f(ctx, promptKey)
}

// Assembler fills outline trees through a Fetcher.
type Assembler struct {
	fetcher     Fetcher
	policy      types.FailurePolicy
	placeholder string
	concurrency int
	observer    Observer
	log         *zap.Logger
	runID       func() string
	now         func() time.Time

	mu sync.Mutex // serializes observer calls
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithPlaceholder sets the body used for failed sections under the
// placeholder policy.
func WithPlaceholder(text string) Option {
	return func(a *Assembler) { a.placeholder = text }
}

// WithConcurrency sets how many sections are fetched at once. Values below
// one mean one.
func WithConcurrency(n int) Option {
	return func(a *Assembler) { a.concurrency = n }
}

// WithObserver sets the event sink.
func WithObserver(o Observer) Option {
	return func(a *Assembler) { a.observer = o }
}

// WithLogger sets the logger for run-level messages.
func WithLogger(log *zap.Logger) Option {
	return func(a *Assembler) { a.log = log }
}

// WithRunID fixes the run identifier instead of generating one per run.
func WithRunID(id string) Option {
	return func(a *Assembler) { a.runID = func() string { return id } }
}

// New returns an assembler. The failure policy has no default: callers
// choose between a strict document (abort) and a best-effort one
// (placeholder).
func New(fetcher Fetcher, policy types.FailurePolicy, opts ...Option) (*Assembler, error) {
	switch policy {
	case types.FailAbort, types.FailPlaceholder:
	case "":
		return nil, ErrNoPolicy
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	a := &Assembler{
		fetcher:     fetcher,
		policy:      policy,
		placeholder: DefaultPlaceholder,
		concurrency: 1,
		log:         zap.NewNop(),
		runID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.concurrency < 1 {
		a.concurrency = 1
	}
	if a.observer == nil {
		a.observer = Observers()
	}
	return a, nil
}

// Report summarizes one run.
type Report struct {
	RunID        string
	Fetched      int
	Cached       int
	Failed       int
	Structural   int
	InputTokens  int
	OutputTokens int
	Failures     []*FetchError
	Duration     time.Duration
}

// Total returns the number of sections visited.
func (r Report) Total() int {
	return r.Fetched + r.Cached + r.Failed + r.Structural
}

// TotalTokens returns input plus output tokens.
func (r Report) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// HasFailures reports whether any section failed.
func (r Report) HasFailures() bool {
	return r.Failed > 0
}

// Assemble builds a tree from spec, populates it and serializes it.
func (a *Assembler) Assemble(ctx context.Context, spec *types.OutlineSpec) (string, Report, error) {
	tree, err := outline.Build(spec)
	if err != nil {
		return "", Report{}, err
	}
	report, err := a.Populate(ctx, tree)
	if err != nil {
		return "", report, err
	}
	return tree.Serialize(), report, nil
}

type job struct {
	path  outline.Path
	title string
	key   string
	depth int
}

// Populate fetches and sets the body of every section that has a prompt
// key. Under the abort policy the first failure cancels the remaining
// fetches and is returned as a *FetchError. Under the placeholder policy
// failed sections get the placeholder body and are listed in the report.
// Cancelling ctx abandons in-flight fetches without committing their bodies.
func (a *Assembler) Populate(ctx context.Context, tree *outline.Tree) (Report, error) {
	start := a.now()
	report := Report{RunID: a.runID()}

	var jobs []job
	_ = tree.Walk(func(p outline.Path, n *outline.Node) error {
		if n.PromptKey == "" {
			report.Structural++
			return nil
		}
		jobs = append(jobs, job{path: p, title: n.Title, key: n.PromptKey, depth: n.Depth})
		return nil
	})

	log := a.log.With(zap.String("run", report.RunID))
	log.Info("assembling article", zap.Int("sections", len(jobs)), zap.String("policy", string(a.policy)), zap.Int("concurrency", a.concurrency))

	var mu sync.Mutex // guards report
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			began := a.now()
			ev := types.Event{
				RunID:     report.RunID,
				Path:      j.path.String(),
				Title:     j.title,
				PromptKey: j.key,
			}

			body, res, err := a.produce(gctx, j)
			if !res.Cached {
				// A replayed answer cost nothing this run.
				ev.InputTokens, ev.OutputTokens = res.InputTokens, res.OutputTokens
			}
			ev.Duration = a.now().Sub(began)
			ev.Time = began

			if err != nil {
				// Cancellation is not a section failure.
				if ctx.Err() != nil || (gctx.Err() != nil && a.policy == types.FailAbort) {
					return gctx.Err()
				}
				ferr := &FetchError{Path: ev.Path, Title: j.title, PromptKey: j.key, Err: err}
				ev.Error = err.Error()

				mu.Lock()
				report.Failed++
				report.Failures = append(report.Failures, ferr)
				mu.Unlock()

				if a.policy == types.FailAbort {
					ev.Outcome = types.OutcomeFailed
					a.emit(ev)
					return ferr
				}
				ev.Outcome = types.OutcomePlaceholder
				if err := a.commit(gctx, tree, j.path, a.placeholder); err != nil {
					return err
				}
				a.emit(ev)
				return nil
			}

			if err := a.commit(gctx, tree, j.path, body); err != nil {
				return err
			}
			ev.Outcome = types.OutcomeFetched
			if res.Cached {
				ev.Outcome = types.OutcomeCached
			}

			mu.Lock()
			if res.Cached {
				report.Cached++
			} else {
				report.Fetched++
				report.InputTokens += res.InputTokens
				report.OutputTokens += res.OutputTokens
			}
			mu.Unlock()

			a.emit(ev)
			return nil
		})
	}

	err := g.Wait()
	report.Duration = a.now().Sub(start)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Warn("assembly stopped", zap.Error(err))
		return report, err
	}

	log.Info("assembly complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("cached", report.Cached),
		zap.Int("failed", report.Failed),
		zap.Int("tokens", report.TotalTokens()),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// produce fetches one section and renders its body.
func (a *Assembler) produce(ctx context.Context, j job) (string, types.FetchResult, error) {
	res, err := a.fetcher.Fetch(ctx, j.key)
	if err != nil {
		return "", res, err
	}
	body, err := RenderBody(res.Text, j.depth)
	if err != nil {
		return "", res, err
	}
	return body, res, nil
}

// commit sets a body only while the run is live.
func (a *Assembler) commit(ctx context.Context, tree *outline.Tree, p outline.Path, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tree.SetBody(p, body)
}

func (a *Assembler) emit(ev types.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observer.Observe(ev)
}

// RenderBody turns a raw Markdown answer into the wiki body of a section at
// depth: enumeration prefixes are stripped, headings are shifted so the
// shallowest sits at depth+1, and the result is converted to wiki markup.
func RenderBody(raw string, depth int) (string, error) {
	md, err := wikitext.Relevel(wikitext.Normalize(raw), depth+1)
	if err != nil {
		return "", err
	}
	body := wikitext.Convert(md)

	// Setext headings are invisible to the line passes above and only show
	// up after conversion. Pull them under the section if they outrank it.
	if ds := wikitext.Headings(body); len(ds) > 0 && minInt(ds) < depth+1 {
		if body, err = wikitext.Relevel(wikitext.Normalize(body), depth+1); err != nil {
			return "", err
		}
	}
	return body, nil
}

func minInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		m = min(m, x)
	}
	return m
}
