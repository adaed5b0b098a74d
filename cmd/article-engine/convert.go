// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/article-engine/internal/assemble"
	"github.com/pdiddy/article-engine/internal/wikitext"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert one Markdown answer to a wiki section body",
	Long: `Convert runs a single Markdown answer through the section pipeline:
enumeration prefixes are stripped from headings, headings are re-leveled to
sit under a section at --depth, and the text is converted to wiki markup.

With --depth 0 the shallowest heading becomes a top-level wiki heading
("== Title =="). Reads stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	depth, _ := cmd.Flags().GetInt("depth")
	if depth < 0 || depth >= wikitext.MaxDepth {
		return fmt.Errorf("--depth %d out of range: sections sit at 0 to %d", depth, wikitext.MaxDepth-1)
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	body, err := assemble.RenderBody(string(data), depth)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return nil
}

func init() {
	convertCmd.Flags().Int("depth", 0, "depth of the section the answer belongs to")

	rootCmd.AddCommand(convertCmd)
}
