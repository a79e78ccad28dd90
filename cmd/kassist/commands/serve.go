package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/kassist-go/internal/config"
	"github.com/54b3r/kassist-go/internal/server"
	"github.com/54b3r/kassist-go/internal/tracing"
)

// NewServeCmd constructs the `kassist serve` command, which starts the HTTP
// API.
func NewServeCmd(a *app) *cobra.Command {
	var host, docs, glob string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kassist HTTP API",
		Long: `Start the kassist HTTP API.

Endpoints:
  POST /api/query          {"query": "..."} -> answer, path, route, context
  POST /api/tools/{name}   run calculator or dictionary with {"input": "..."}
  GET  /api/history        recent queries (?limit=n)
  GET  /api/health         liveness
  GET  /api/ready          dependency readiness (index, qdrant, dictionary)
  GET  /metrics            Prometheus metrics

Set server.api_key (KASSIST_API_KEY) to require a Bearer token on /api/query,
/api/tools and /api/history.

Examples:
  kassist serve
  kassist serve --port 9090 --docs ./data/sample_docs`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cfg, log := a.cfg, a.log

			flush := tracing.Install(cfg.TracingConfig())
			defer flush()
			if cfg.TracingConfig().Enabled() {
				log.Info("langfuse tracing enabled")
			}

			kb, err := openKnowledgeBase(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer kb.close()

			if glob == "" {
				glob = cfg.Index.Glob
			}
			if err := prepareIndex(ctx, cfg, kb, docs, glob, log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			history, closeHistory := openHistory(cfg, log)
			defer closeHistory()

			asst, err := buildAssistant(ctx, cfg, kb.index, history, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			srv, err := server.New(asst.orchestrator, &server.Config{
				Host:         cfg.Server.Host,
				Port:         cfg.Server.Port,
				QueryTimeout: cfg.Server.QueryTimeout,
				Logger:       log,
				Pingers:      buildPingers(cfg, kb),
				Index:        kb.index,
				Tools:        asst.tools,
				History:      history,
				RateLimit:    cfg.Server.RateLimit,
				RateBurst:    cfg.Server.RateBurst,
				APIKey:       cfg.Server.APIKey,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting", slog.String("provider", cfg.Model.Provider), slog.String("index", cfg.Index.Backend))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default from config, 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default from config, 8080)")
	cmd.Flags().StringVar(&docs, "docs", "", "Build the index from this directory if it is empty")
	cmd.Flags().StringVar(&glob, "glob", "", "File pattern under --docs (default from config, **/*.txt)")

	return cmd
}

// buildPingers returns the readiness probes for GET /api/ready. The index
// itself is reported through server.Config.Index.
func buildPingers(cfg *config.Config, kb *knowledgeBase) []server.Pinger {
	var pingers []server.Pinger
	if kb.qdrant != nil {
		pingers = append(pingers, server.NewPinger("qdrant", kb.qdrant))
	}
	if cfg.Dictionary.BaseURL != "" {
		pingers = append(pingers, server.NewHTTPPinger("dictionary", cfg.Dictionary.BaseURL))
	}
	return pingers
}
