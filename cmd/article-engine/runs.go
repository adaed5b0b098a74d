// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/cache"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded assembly runs",
	Long: `Runs lists the assembly runs recorded in the cache ledger, newest first,
with section counts and token usage. Use "runs show RUN_ID" for the sections
of one run and "runs purge" to drop old cached responses.`,
	Args: cobra.NoArgs,
	RunE: runRunsList,
}

func openLedger() (*cache.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Cache.Path, logger)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(context.Background(), limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSECTIONS\tCACHED\tFAILED\tTOKENS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID, r.Started.Local().Format(time.DateTime), r.Sections, r.Cached, r.Failed, r.TotalTokens())
	}
	return w.Flush()
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show the sections of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := store.RunEvents(context.Background(), args[0])
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no run %q in the ledger", args[0])
	}
	if asJSON {
		return writeJSON(events)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSECTION\tPROMPT\tOUTCOME\tTOKENS\tDURATION\tERROR")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			ev.Path, ev.Title, ev.PromptKey, ev.Outcome, ev.TotalTokens(), ev.Duration.Round(time.Millisecond), ev.Error)
	}
	return w.Flush()
}

// --- purge subcommand ---

var runsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached responses older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runRunsPurge,
}

func runRunsPurge(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")

	store, err := openLedger()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Purge(context.Background(), age)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d cached response(s)\n", n)
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runsCmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs listed")
	runsPurgeCmd.Flags().Duration("older-than", 30*24*time.Hour, "age of the responses to delete")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPurgeCmd)
	rootCmd.AddCommand(runsCmd)
}
