package main

import (
	"fmt"

	"github.com/slackmgr/todos/internal/config"
	"github.com/slackmgr/todos/internal/logging"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags and the configuration resolved from
// them before any subcommand runs.
type rootOptions struct {
	configPath string
	envFile    string

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "todos",
		Short:         "Multi-tenant task list API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath, opts.envFile)
			if err != nil {
				return err
			}

			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			opts.cfg = cfg
			opts.logger = logger

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a dotenv file, ignored if missing")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCheckSchemaCommand(opts))
	cmd.AddCommand(newScanCommand(opts))

	return cmd
}
