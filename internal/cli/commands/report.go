package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/sqlunit/internal/cli/output"
	"github.com/leapstack-labs/sqlunit/internal/runner"
)

// renderSummary writes a run summary in the renderer's effective mode.
func renderSummary(r *output.Renderer, s *runner.Summary) {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		renderSummaryJSON(r, s)
	case output.ModeMarkdown:
		renderSummaryMarkdown(r, s)
	default:
		renderSummaryText(r, s)
	}
}

func renderSummaryText(r *output.Renderer, s *runner.Summary) {
	styles := r.Styles()
	for _, f := range s.Files {
		rel := relPath(f.File)
		if f.Err != nil {
			r.Error(fmt.Sprintf("%s: %v", rel, f.Err))
			continue
		}
		if len(f.Cases) == 0 {
			continue
		}
		r.Println(styles.Header.Render(rel))
		for _, c := range f.Cases {
			switch c.Status {
			case runner.StatusPass:
				r.Println(styles.Success.Render(fmt.Sprintf("  ✓ %s (%s)", c.Name, c.Duration.Round(time.Millisecond))))
			case runner.StatusSkip:
				r.Println(styles.Muted.Render(fmt.Sprintf("  - %s (skipped)", c.Name)))
			default:
				r.Println(styles.Error.Render(fmt.Sprintf("  ✗ %s", c.Name)))
				r.Println(styles.Muted.Render(indent(c.Err.Error(), "      ")))
			}
		}
	}

	passed, failed, errored, skipped := s.Counts()
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Passed", "Failed", "Errors", "Skipped", "Duration"})
	t.AppendRow(table.Row{passed, failed, errored, skipped, s.Duration.Round(time.Millisecond)})
	t.Render()
}

func renderSummaryMarkdown(r *output.Renderer, s *runner.Summary) {
	passed, failed, errored, skipped := s.Counts()
	r.Println(output.FormatHeader(1, "Test Results"))
	r.Println("")
	for _, f := range s.Files {
		rel := relPath(f.File)
		if f.Err != nil {
			r.Printf("- ✗ **%s**: %v\n", rel, f.Err)
			continue
		}
		for _, c := range f.Cases {
			switch c.Status {
			case runner.StatusPass:
				r.Printf("- ✓ %s: %s\n", rel, c.Name)
			case runner.StatusSkip:
				r.Printf("- (skip) %s: %s\n", rel, c.Name)
			default:
				r.Printf("- ✗ %s: %s\n  - %v\n", rel, c.Name, c.Err)
			}
		}
	}
	r.Println("")
	r.Println(output.FormatKeyValue("passed", fmt.Sprintf("%d", passed)))
	r.Println(output.FormatKeyValue("failed", fmt.Sprintf("%d", failed)))
	r.Println(output.FormatKeyValue("errors", fmt.Sprintf("%d", errored)))
	r.Println(output.FormatKeyValue("skipped", fmt.Sprintf("%d", skipped)))
	r.Println(output.FormatKeyValue("duration", s.Duration.Round(time.Millisecond).String()))
}

type jsonCase struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type jsonSummary struct {
	Cases    []jsonCase `json:"cases"`
	Passed   int        `json:"passed"`
	Failed   int        `json:"failed"`
	Errors   int        `json:"errors"`
	Skipped  int        `json:"skipped"`
	Duration string     `json:"duration"`
}

func renderSummaryJSON(r *output.Renderer, s *runner.Summary) {
	passed, failed, errored, skipped := s.Counts()
	out := jsonSummary{
		Cases:    []jsonCase{},
		Passed:   passed,
		Failed:   failed,
		Errors:   errored,
		Skipped:  skipped,
		Duration: s.Duration.String(),
	}
	for _, f := range s.Files {
		if f.Err != nil {
			out.Cases = append(out.Cases, jsonCase{
				File:   relPath(f.File),
				Status: string(runner.StatusError),
				Error:  f.Err.Error(),
			})
			continue
		}
		for _, c := range f.Cases {
			jc := jsonCase{
				Name:     c.Name,
				File:     relPath(f.File),
				Line:     c.Line,
				Status:   string(c.Status),
				Duration: c.Duration.String(),
			}
			if c.Err != nil {
				jc.Error = c.Err.Error()
			}
			out.Cases = append(out.Cases, jc)
		}
	}
	_ = r.JSON(out)
}

// relPath shortens a file path relative to the working directory when it can.
func relPath(path string) string {
	if rel, err := filepath.Rel(".", path); err == nil && len(rel) < len(path) {
		return rel
	}
	return path
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
