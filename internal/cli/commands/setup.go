// Package commands implements the sqlunit subcommands.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlunit/internal/cli/config"
	"github.com/leapstack-labs/sqlunit/internal/cli/output"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext assembles the config, logger and renderer for a command.
// The config was loaded by the root command's PersistentPreRunE; a fresh
// default config covers direct command invocation in tests.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		cfg = &config.Config{
			Paths:        []string{"."},
			FloatEpsilon: config.DefaultEpsilon,
			Ordered:      config.DefaultOrdered,
			Jobs:         config.DefaultJobs,
			OutputFormat: config.DefaultOutput,
		}
	}
	mode := output.Mode(cfg.OutputFormat)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}
