// Package cli implements vigilctl, the operator command line for the VIGIL
// warehouse and assistant.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashureev/vigil/internal/config"
	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

// now is replaced in tests.
var now season.Clock = season.SystemClock

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dbPath  string
	verbose bool
}

// NewRootCommand builds the vigilctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "vigilctl",
		Short: "VIGIL operator tool",
		Long: `vigilctl talks to the VIGIL wildfire risk warehouse directly.

It can ask the assistant a question, print the fire season countdown,
seed a demo warehouse and look up GO95 vegetation clearances.
Configuration comes from the environment (and .env) like the server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "warehouse file (default: DB_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(
		newAskCommand(opts),
		newCountdownCommand(),
		newSeedCommand(opts),
		newClearanceCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "vigilctl %s\ncommit: %s\n", appVersion, appCommit)
			},
		},
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *globalOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// load reads the environment configuration with the --db override applied.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	return cfg, nil
}

func (o *globalOptions) openWarehouse(cfg *config.Config, logger *slog.Logger) (*warehouse.SQLite, error) {
	wh, err := warehouse.Open(cfg.DBPath, warehouse.Options{QueryTimeout: cfg.QueryTimeout, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open warehouse %s: %w", cfg.DBPath, err)
	}
	return wh, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
