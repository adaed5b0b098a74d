// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/article-engine/internal/fetch"
	"github.com/pdiddy/article-engine/internal/outline"
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Inspect and rearrange article outlines",
	Long: `Outline works on outline YAML files. Paths are dotted 1-based positions:
"1" is the first top-level section, "1.2" its second subsection, and "root"
the article itself.`,
}

// --- show subcommand ---

var outlineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the sections of an outline",
	Long: `Show lists every section with its path and prompt key. With --skeleton it
prints the wiki headings the article will have, without bodies.`,
	Args: cobra.NoArgs,
	RunE: runOutlineShow,
}

func runOutlineShow(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("outline")
	skeleton, _ := cmd.Flags().GetBool("skeleton")

	spec, err := loadOutline(path)
	if err != nil {
		return err
	}
	tree, err := outline.Build(spec)
	if err != nil {
		return err
	}

	if skeleton {
		fmt.Print(tree.Serialize())
		return nil
	}
	if spec.Title != "" {
		fmt.Println(spec.Title)
	}
	if spec.Subject != "" {
		fmt.Printf("Subject: %s\n", spec.Subject)
	}
	fmt.Print(tree.Summary())
	prompts, err := fetch.NewPromptSet(spec.Prompts)
	if err != nil {
		return err
	}
	if missing := prompts.Missing(spec.PromptKeys()); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "warning: no prompt template for %v\n", missing)
	}
	return nil
}

// --- move subcommand ---

var outlineMoveCmd = &cobra.Command{
	Use:   "move SRC DEST_PARENT POSITION",
	Short: "Move a section and its subsections elsewhere in the outline",
	Long: `Move detaches the section at SRC and inserts it as child POSITION (1-based)
of DEST_PARENT. POSITION counts DEST_PARENT's children after SRC is removed.
Depths of the moved subtree shift with it.

Example: promote the second subsection of section 1 to a top-level section
placed last of three:

  article-engine outline move 1.2 root 3 --outline outline.yaml --write

Without --write the updated outline is printed to stdout.`,
	Args: cobra.ExactArgs(3),
	RunE: runOutlineMove,
}

func runOutlineMove(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("outline")
	write, _ := cmd.Flags().GetBool("write")
	if write && path == "" {
		return fmt.Errorf("--write needs --outline: the built-in outline cannot be rewritten")
	}

	src, err := outline.ParsePath(args[0])
	if err != nil {
		return err
	}
	dest, err := outline.ParsePath(args[1])
	if err != nil {
		return err
	}
	pos, err := strconv.Atoi(args[2])
	if err != nil || pos < 1 {
		return fmt.Errorf("position %q is not a positive number", args[2])
	}

	spec, err := loadOutline(path)
	if err != nil {
		return err
	}
	tree, err := outline.Build(spec)
	if err != nil {
		return err
	}
	moved, err := tree.Move(src, dest, pos-1)
	if err != nil {
		return err
	}
	logger.Debug("section moved", zap.Stringer("from", src), zap.Stringer("to", moved))

	spec.Sections = tree.Sections()
	data, err := outline.MarshalSpec(spec)
	if err != nil {
		return err
	}

	if !write {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing outline: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Moved %s to %s\n", src, moved)
	fmt.Print(tree.Summary())
	return nil
}

func init() {
	outlineCmd.PersistentFlags().String("outline", "", "outline YAML file (default: built-in company overview)")

	outlineShowCmd.Flags().Bool("skeleton", false, "print the article headings without bodies")

	outlineMoveCmd.Flags().Bool("write", false, "rewrite the outline file in place")

	outlineCmd.AddCommand(outlineShowCmd)
	outlineCmd.AddCommand(outlineMoveCmd)
	rootCmd.AddCommand(outlineCmd)
}
