// Package commands defines all Cobra CLI commands for the kassist binary.
package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/54b3r/kassist-go/internal/audit"
	"github.com/54b3r/kassist-go/internal/config"
	"github.com/54b3r/kassist-go/internal/logging"
)

// app is the state resolved once by the root command and shared with every
// subcommand.
type app struct {
	// configPath is the --config flag value.
	configPath string
	// loadedConfigPath is the file actually read, or empty.
	loadedConfigPath string
	// cfg is the resolved configuration.
	cfg *config.Config
	// log is the process logger built from cfg.Logging.
	log *slog.Logger
}

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kassist",
		Short: "kassist, a routed knowledge assistant",
		Long: `kassist answers natural-language questions through one of three paths:

  calculate ...   arithmetic and "X% of Y" via a restricted evaluator
  define ...      dictionary lookup against a public definitions API
  anything else   retrieval-augmented generation over your ingested documents

Configuration is read from --config, $KASSIST_CONFIG, ~/.kassist/config.yaml
or ./kassist.yaml, then overridden by environment variables (a .env file in
the working directory is loaded first).
See 'kassist --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env never overrides variables already set in the environment.
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}

			cfg, path, err := config.Load(a.configPath, slog.Default())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.loadedConfigPath = path
			a.log = logging.New(cfg.Logging.Level, cfg.Logging.Format)
			slog.SetDefault(a.log)
			cmd.SetContext(logging.WithLogger(cmd.Context(), a.log))

			audit.LogCommandStart(a.log, cmd.Name(), a.loadedConfigPath, cfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file (default: ~/.kassist/config.yaml)")

	root.AddCommand(
		NewAskCmd(a),
		NewRouteCmd(),
		NewIngestCmd(a),
		NewServeCmd(a),
		NewVersionCmd(),
	)

	return root
}
