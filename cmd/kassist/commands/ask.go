package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/kassist-go/internal/agent"
)

// NewAskCmd constructs the `kassist ask` command, which answers a single
// question and prints the path taken, the context used and the answer.
func NewAskCmd(a *app) *cobra.Command {
	var docs, glob string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question",
		Long: `Answer a single natural-language question.

Questions containing "calculate" go to the calculator, questions containing
"define" go to the dictionary, and everything else is answered from the
ingested documents. If the index is empty and --docs is given, the index is
built first.

Examples:
  kassist ask "calculate 20% of 100"
  kassist ask "define ephemeral"
  kassist ask --docs ./data/sample_docs "What is the refund policy?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log

			kb, err := openKnowledgeBase(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer kb.close()

			if glob == "" {
				glob = cfg.Index.Glob
			}
			if err := prepareIndex(ctx, cfg, kb, docs, glob, log); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			history, closeHistory := openHistory(cfg, log)
			defer closeHistory()

			asst, err := buildAssistant(ctx, cfg, kb.index, history, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			res := asst.orchestrator.Process(ctx, strings.Join(args, " "))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVar(&docs, "docs", "", "Build the index from this directory if it is empty")
	cmd.Flags().StringVar(&glob, "glob", "", "File pattern under --docs (default from config, **/*.txt)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// printResult writes res in the human-readable layout.
func printResult(w io.Writer, res agent.Result) {
	fmt.Fprintf(w, "Path: %s\n", res.Path)
	if len(res.Context) > 0 {
		fmt.Fprintln(w, "Context:")
		for i, c := range res.Context {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, strings.ReplaceAll(strings.TrimSpace(c), "\n", "\n      "))
		}
	}
	fmt.Fprintf(w, "Answer: %s\n", res.Answer)
}
