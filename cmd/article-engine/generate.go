// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/assemble"
	"github.com/pdiddy/article-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a wiki article from an outline",
	Long: `Generate fetches one answer per outline section that has a prompt key,
normalizes and re-levels it under its heading, converts it to wiki markup
and writes the assembled article.

A failure policy is required: --on-failure abort stops at the first section
that cannot be fetched; --on-failure placeholder fills it with placeholder
text and keeps going. Failed sections are always reported.

Without --outline the built-in company overview (Intro, Cost, Customer) is
used.`,
	RunE: runGenerate,
}

var generateFlagKeys = map[string]string{
	"assembly.output":      "output",
	"assembly.on_failure":  "on-failure",
	"assembly.placeholder": "placeholder",
	"assembly.concurrency": "concurrency",
	"ai.backend":           "backend",
	"ai.model":             "model",
	"ai.responses_dir":     "responses-dir",
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := bindFlags(cmd.Flags(), generateFlagKeys); err != nil {
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

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	observers := []assemble.Observer{
		assemble.ProgressObserver(os.Stderr),
		assemble.LogObserver(logger),
	}
	if store != nil {
		defer store.Close()
		observers = append(observers, store)
	}

	fetcher, err := newFetcher(ctx, cfg, spec, store)
	if err != nil {
		return err
	}

	a, err := assemble.New(fetcher, cfg.Assembly.OnFailure,
		assemble.WithPlaceholder(cfg.Assembly.Placeholder),
		assemble.WithConcurrency(cfg.Assembly.Concurrency),
		assemble.WithObserver(assemble.Observers(observers...)),
		assemble.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	doc, report, err := a.Assemble(ctx, spec)
	if err != nil {
		return err
	}

	output := cfg.Assembly.Output
	if output == "-" {
		fmt.Print(doc)
	} else {
		if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("writing article: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "\nRun %s: %d fetched, %d cached, %d failed, %d tokens\n",
		report.RunID, report.Fetched, report.Cached, report.Failed, report.TotalTokens())
	if output != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
	}
	if report.HasFailures() && cfg.Assembly.OnFailure == types.FailPlaceholder {
		fmt.Fprintf(os.Stderr, "%d section(s) hold placeholder text\n", report.Failed)
	}
	return nil
}

func init() {
	generateCmd.Flags().String("outline", "", "outline YAML file (default: built-in company overview)")
	generateCmd.Flags().String("subject", "", "company ticker substituted into prompts (overrides the outline)")
	generateCmd.Flags().StringP("output", "o", defaultOutput, `output file, or "-" for stdout`)
	generateCmd.Flags().String("on-failure", "", "failure policy: abort or placeholder (required)")
	generateCmd.Flags().String("placeholder", "", "body for failed sections under the placeholder policy")
	generateCmd.Flags().Int("concurrency", 1, "sections fetched in parallel")
	generateCmd.Flags().String("backend", "", "answer source: claude, gemini, or dir")
	generateCmd.Flags().String("model", "", "model identifier")
	generateCmd.Flags().String("responses-dir", "", "directory of saved answers for the dir backend")
	generateCmd.Flags().Bool("no-cache", false, "do not read or write the response cache")

	rootCmd.AddCommand(generateCmd)
}
