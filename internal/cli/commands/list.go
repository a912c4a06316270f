package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlunit/internal/annotation"
	"github.com/leapstack-labs/sqlunit/internal/cli/output"
	"github.com/leapstack-labs/sqlunit/internal/runner"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [paths...]",
		Short: "List discovered tests and their mocks",
		Long: `List every annotated SQL file under the search paths with its
declared mocks and tests, without executing anything.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List all tests
  sqlunit list

  # List tests as JSON
  sqlunit list --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, args)
		},
	}
}

type listedFile struct {
	File  string   `json:"file"`
	Mocks []string `json:"mocks"`
	Tests []string `json:"tests"`
	Error string   `json:"error,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	paths := args
	if len(paths) == 0 {
		paths = cmdCtx.Cfg.Paths
		if err := cmdCtx.Cfg.ValidatePaths(); err != nil {
			return err
		}
	}

	files, err := runner.Discover(paths)
	if err != nil {
		return err
	}

	var listed []listedFile
	for _, file := range files {
		entry := listedFile{File: relPath(file), Mocks: []string{}, Tests: []string{}}
		src, err := os.ReadFile(file)
		if err != nil {
			entry.Error = err.Error()
			listed = append(listed, entry)
			continue
		}
		doc, err := annotation.ParseFile(file, string(src))
		if err != nil {
			entry.Error = err.Error()
			listed = append(listed, entry)
			continue
		}
		for _, m := range doc.Mocks {
			entry.Mocks = append(entry.Mocks, fmt.Sprintf("%s (%s)", m.Name, m.Kind))
		}
		for _, t := range doc.Tests {
			entry.Tests = append(entry.Tests, t.Name)
		}
		listed = append(listed, entry)
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(listed)
	}

	total := 0
	for _, entry := range listed {
		total += len(entry.Tests)
	}
	r.Header(1, fmt.Sprintf("Tests (%d total in %d files)", total, len(listed)))
	for _, entry := range listed {
		if entry.Error != "" {
			r.Error(fmt.Sprintf("%s: %s", entry.File, entry.Error))
			continue
		}
		r.Println(entry.File)
		for _, m := range entry.Mocks {
			r.Muted("  mock " + m)
		}
		for _, t := range entry.Tests {
			r.Println("  test " + t)
		}
	}
	return nil
}
