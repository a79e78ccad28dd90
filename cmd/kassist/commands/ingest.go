package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/kassist-go/internal/ingestion"
)

// NewIngestCmd constructs the `kassist ingest` command, which loads documents,
// chunks them and rebuilds the vector index.
func NewIngestCmd(a *app) *cobra.Command {
	var docs, glob string
	var urls []string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the vector index from documents",
		Long: `Load documents, split them into overlapping chunks, embed them and
replace the vector index with the result.

Local files are selected with --docs and --glob (default **/*.txt); files
that are not UTF-8 text are skipped with a warning. Web pages given with
--url are fetched and HTML is converted to Markdown before chunking.

The index records the embedding model it was built with. Changing the
embedding model requires re-running ingest.

Examples:
  kassist ingest
  kassist ingest --docs ./handbook --glob "**/*.md"
  kassist ingest --url https://example.com/policies/refunds`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := a.cfg, a.log

			src := ingestion.Sources{Dir: docs, Glob: glob, URLs: urls}
			if !cmd.Flags().Changed("docs") {
				src.Dir = cfg.Index.DocsDir
				if len(urls) > 0 {
					// --url alone ingests only the given pages.
					src.Dir = ""
				}
			}
			if src.Glob == "" {
				src.Glob = cfg.Index.Glob
			}

			kb, err := openKnowledgeBase(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer kb.close()

			log.Info("starting ingestion",
				slog.String("docs", src.Dir),
				slog.String("glob", src.Glob),
				slog.Int("urls", len(src.URLs)),
			)
			rep, err := ingest(ctx, cfg, kb, src, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d documents.\n", rep.Chunks, rep.Documents)
			return nil
		},
	}

	cmd.Flags().StringVar(&docs, "docs", "", "Directory of documents to ingest (default from config)")
	cmd.Flags().StringVar(&glob, "glob", "", "File pattern under --docs (default from config, **/*.txt)")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Web page to ingest (repeatable)")

	return cmd
}
