package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlunit/pkg/adapter"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run ad-hoc SQL against the target engine",
		Long: `Execute SQL directly against the configured engine, outside any test.

Handy for exploring what a composed test query sees, or for checking engine
behavior while writing expectations. Supports multiple output formats for
scripting and integration.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  sqlunit query "SELECT 1 + 1 AS two"

  # Output as JSON
  sqlunit query "SELECT * FROM range(3)" --format json

  # Pipe SQL in
  echo "SELECT 42" | sqlunit query

  # Interactive mode
  sqlunit query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	ad, err := connectTarget(cmd, cmdCtx)
	if err != nil {
		return err
	}
	defer func() { _ = ad.Close() }()

	// Determine SQL source
	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		// Read from stdin (piped input)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx, ad, opts)
	}

	rows, err := ad.Query(cmd.Context(), sqlQuery)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return renderResults(cmd.OutOrStdout(), rows, opts.Format)
}

// connectTarget opens a connection to the configured engine.
func connectTarget(cmd *cobra.Command, cmdCtx *CommandContext) (adapter.Adapter, error) {
	target := cmdCtx.Cfg.Target.AdapterConfig()
	ad, err := adapter.New(target, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	if err := ad.Connect(cmd.Context(), target); err != nil {
		return nil, err
	}
	return ad, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
