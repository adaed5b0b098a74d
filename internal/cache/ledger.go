// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/article-engine/pkg/types"
)

// RunSummary aggregates the ledger for one run.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Started      time.Time `json:"started"`
	Sections     int       `json:"sections"`
	Failed       int       `json:"failed"`
	Cached       int       `json:"cached"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
}

// TotalTokens returns input plus output tokens.
func (r RunSummary) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Record appends an event to the ledger.
func (s *Store) Record(ctx context.Context, ev types.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, path, title, prompt_key, outcome, error, input_tokens, output_tokens, duration_ms, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.Path, ev.Title, ev.PromptKey, string(ev.Outcome), ev.Error,
		ev.InputTokens, ev.OutputTokens, ev.Duration.Milliseconds(),
		ev.Time.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// Observe records ev and logs a failure to do so. It lets the store sit in
// an assembler's observer list.
func (s *Store) Observe(ev types.Event) {
	if err := s.Record(context.Background(), ev); err != nil {
		s.log.Warn("ledger write failed", zap.String("run", ev.RunID), zap.Error(err))
	}
}

// Runs returns the most recent runs first, at most limit of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, MIN(time), COUNT(*),
			SUM(CASE WHEN outcome IN ('failed', 'placeholder') THEN 1 ELSE 0 END),
			SUM(CASE WHEN outcome = 'cached' THEN 1 ELSE 0 END),
			COALESCE(SUM(CASE WHEN outcome = 'cached' THEN 0 ELSE input_tokens END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'cached' THEN 0 ELSE output_tokens END), 0)
		FROM events
		GROUP BY run_id
		ORDER BY MIN(time) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started string
		if err := rows.Scan(&r.RunID, &started, &r.Sections, &r.Failed, &r.Cached, &r.InputTokens, &r.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started, _ = time.Parse(timeFormat, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunEvents returns the events of one run in the order they were recorded.
func (s *Store) RunEvents(ctx context.Context, runID string) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, path, title, prompt_key, outcome, error, input_tokens, output_tokens, duration_ms, time
		FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var ev types.Event
		var outcome, when string
		var errText sql.NullString
		var durationMS int64
		if err := rows.Scan(&ev.RunID, &ev.Path, &ev.Title, &ev.PromptKey, &outcome, &errText,
			&ev.InputTokens, &ev.OutputTokens, &durationMS, &when); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.Outcome = types.Outcome(outcome)
		ev.Error = errText.String
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		ev.Time, _ = time.Parse(timeFormat, when)
		events = append(events, ev)
	}
	return events, rows.Err()
}
