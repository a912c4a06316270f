package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlunit/internal/runner"
	// Register the built-in engine adapters.
	_ "github.com/leapstack-labs/sqlunit/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqlunit/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlunit/pkg/adapters/sqlite"
)

// TestOptions holds options for the test command.
type TestOptions struct {
	Run     string
	Jobs    int
	Watch   bool
	Epsilon float64
	Ordered string
}

// NewTestCommand creates the test command.
func NewTestCommand() *cobra.Command {
	opts := &TestOptions{}

	cmd := &cobra.Command{
		Use:   "test [paths...]",
		Short: "Run SQL unit tests",
		Long: `Discover annotated SQL files and run their declared tests.

Paths default to the configured search paths. Each file runs on its own
engine connection; files run concurrently up to the jobs limit.`,
		Example: `  # Run every test under the configured paths
  sqlunit test

  # Run tests in one directory
  sqlunit test models/marts

  # Run only tests whose name contains "revenue"
  sqlunit test --run revenue

  # Rerun on file changes
  sqlunit test --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "Only run tests whose name contains the substring")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Max files running concurrently (default from config)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Rerun tests when SQL files change")
	cmd.Flags().Float64Var(&opts.Epsilon, "epsilon", 0, "Float comparison tolerance (default from config)")
	cmd.Flags().StringVar(&opts.Ordered, "ordered", "", "Row comparison mode: auto, always, never")

	return cmd
}

func runTest(cmd *cobra.Command, args []string, opts *TestOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	paths := args
	if len(paths) == 0 {
		paths = cfg.Paths
		if err := cfg.ValidatePaths(); err != nil {
			return err
		}
	}

	jobs := cfg.Jobs
	if opts.Jobs > 0 {
		jobs = opts.Jobs
	}
	epsilon := cfg.FloatEpsilon
	if opts.Epsilon > 0 {
		epsilon = opts.Epsilon
	}
	ordered := cfg.Ordered
	if opts.Ordered != "" {
		ordered = opts.Ordered
	}

	r := runner.New(runner.Options{
		Target:  cfg.Target.AdapterConfig(),
		Epsilon: epsilon,
		Ordered: ordered,
		Jobs:    jobs,
		Filter:  opts.Run,
		Logger:  cmdCtx.Logger,
	})

	if opts.Watch {
		return r.Watch(cmd.Context(), paths, func(s *runner.Summary) {
			renderSummary(cmdCtx.Renderer, s)
		})
	}

	files, err := runner.Discover(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmdCtx.Renderer.Warning("no annotated SQL files found")
		return nil
	}

	summary, err := r.Run(cmd.Context(), files)
	if err != nil {
		return err
	}
	renderSummary(cmdCtx.Renderer, summary)

	if !summary.OK() {
		_, failed, errored, _ := summary.Counts()
		return fmt.Errorf("%d test(s) failed, %d error(s)", failed, errored)
	}
	return nil
}
