// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/pdiddy/article-engine/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [prompt-key...]",
	Short: "Fetch raw Markdown answers for outline prompts",
	Long: `Fetch sends the named prompts (every prompt in the outline when none are
given) to the configured backend and prints the raw Markdown answers.

With --save the answers are written to DIR/<prompt-key>.md, where the dir
backend of "generate" can replay them:

  article-engine fetch --save responses
  article-engine generate --backend dir --responses-dir responses --on-failure abort`,
	RunE: runFetch,
}

var fetchFlagKeys = map[string]string{
	"ai.backend":       "backend",
	"ai.model":         "model",
	"ai.responses_dir": "responses-dir",
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := bindFlags(cmd.Flags(), fetchFlagKeys); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	outlinePath, _ := cmd.Flags().GetString("outline")
	spec, err := loadOutline(outlinePath)
	if err != nil {
		return err
	}
	if subject, _ := cmd.Flags().GetString("subject"); subject != "" {
		spec.Subject = subject
	}

	keys := args
	if len(keys) == 0 {
		keys = uniqueKeys(spec.PromptKeys())
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	fetcher, err := newFetcher(ctx, cfg, spec, store)
	if err != nil {
		return err
	}

	saveDir, _ := cmd.Flags().GetString("save")
	pretty, _ := cmd.Flags().GetBool("pretty")
	out := cmd.OutOrStdout()

	for _, key := range keys {
		res, err := fetcher.Fetch(ctx, key)
		if err != nil {
			return err
		}
		logger.Debug("prompt fetched", zap.String("prompt", key), zap.Bool("cached", res.Cached),
			zap.Int("tokens", res.InputTokens+res.OutputTokens))

		if saveDir != "" {
			if err := fetch.SaveResponse(saveDir, key, res.Text); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s\n", key)
			continue
		}
		if len(keys) > 1 {
			fmt.Fprintf(out, "<!-- %s -->\n", key)
		}
		if err := printMarkdown(out, res.Text, pretty); err != nil {
			return err
		}
	}
	return nil
}

// printMarkdown writes text, styled for the terminal when pretty is set and
// w is one.
func printMarkdown(w io.Writer, text string, pretty bool) error {
	if !pretty || !isTerminal(w) {
		_, err := fmt.Fprintln(w, text)
		return err
	}

	width := 100
	if f, ok := w.(*os.File); ok {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	styled, err := r.Render(text)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, styled)
	return err
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// uniqueKeys drops repeated keys, keeping the first occurrence.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	var out []string
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func init() {
	fetchCmd.Flags().String("outline", "", "outline YAML file holding the prompts (default: built-in company overview)")
	fetchCmd.Flags().String("subject", "", "company ticker substituted into prompts (overrides the outline)")
	fetchCmd.Flags().String("backend", "", "answer source: claude, gemini, or dir")
	fetchCmd.Flags().String("model", "", "model identifier")
	fetchCmd.Flags().String("responses-dir", "", "directory of saved answers for the dir backend")
	fetchCmd.Flags().Bool("no-cache", false, "do not read or write the response cache")
	fetchCmd.Flags().String("save", "", "write answers to DIR/<prompt-key>.md instead of printing them")
	fetchCmd.Flags().Bool("pretty", false, "render Markdown for the terminal")

	rootCmd.AddCommand(fetchCmd)
}
