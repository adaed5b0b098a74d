// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists model answers and run events in SQLite. Answers are
// keyed by model and prompt text; a later run asking the same prompt of the
// same model replays the stored answer instead of calling the backend again.
// Events form the run ledger, where replayed answers count no tokens.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/article-engine/internal/fetch"
)

// timeFormat is fixed-width so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Store manages the cache database.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the database at path and its schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer keeps concurrent section fetches from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			hash TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			prompt TEXT NOT NULL,
			text TEXT NOT NULL,
			input_tokens INTEGER,
			output_tokens INTEGER,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			path TEXT,
			title TEXT,
			prompt_key TEXT,
			outcome TEXT NOT NULL,
			error TEXT,
			input_tokens INTEGER,
			output_tokens INTEGER,
			duration_ms INTEGER,
			time TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func responseKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored answer for model and prompt.
func (s *Store) Get(ctx context.Context, model, prompt string) (fetch.Completion, bool, error) {
	c := fetch.Completion{Model: model, Cached: true}
	err := s.db.QueryRowContext(ctx,
		`SELECT text, input_tokens, output_tokens FROM responses WHERE hash = ?`,
		responseKey(model, prompt),
	).Scan(&c.Text, &c.InputTokens, &c.OutputTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return fetch.Completion{}, false, nil
	}
	if err != nil {
		return fetch.Completion{}, false, fmt.Errorf("reading cached response: %w", err)
	}
	return c, true, nil
}

// Put stores an answer, replacing any earlier one for the same prompt.
func (s *Store) Put(ctx context.Context, model, prompt string, c fetch.Completion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (hash, model, prompt, text, input_tokens, output_tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		responseKey(model, prompt), model, prompt, c.Text, c.InputTokens, c.OutputTokens,
		time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

// Purge deletes stored answers older than age. It returns the number removed.
func (s *Store) Purge(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UTC().Format(timeFormat)
	res, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging responses: %w", err)
	}
	return res.RowsAffected()
}
