package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlunit/internal/runner"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var caseName string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a test's composed SQL without executing it",
		Long: `Render the final SQL a test would send to the engine: mock tables
materialized as a WITH prelude, template expressions substituted with the
test's bindings.

Useful for debugging templates and mock declarations.`,
		Example: `  # Render the first test in a file
  sqlunit render models/marts/revenue.sql

  # Render a specific test
  sqlunit render models/marts/revenue.sql --case handles_empty_input`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)

			r := runner.New(runner.Options{
				Target: cmdCtx.Cfg.Target.AdapterConfig(),
				Logger: cmdCtx.Logger,
			})
			sql, err := r.RenderCase(args[0], caseName)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Println(sql)
			return nil
		},
	}

	cmd.Flags().StringVarP(&caseName, "case", "c", "", "Test name to render (default: first test in the file)")
	return cmd
}
