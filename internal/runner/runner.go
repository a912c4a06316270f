// Package runner orchestrates a test run: it parses annotated SQL files,
// resolves mock bindings, renders templates, executes the composed queries
// against an engine adapter and compares results against expectations.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sqlunit/internal/annotation"
	"github.com/leapstack-labs/sqlunit/internal/compare"
	"github.com/leapstack-labs/sqlunit/internal/materialize"
	"github.com/leapstack-labs/sqlunit/internal/mock"
	"github.com/leapstack-labs/sqlunit/internal/tabledata"
	"github.com/leapstack-labs/sqlunit/internal/template"
	"github.com/leapstack-labs/sqlunit/pkg/adapter"
)

// Ordered comparison modes.
const (
	OrderedAuto   = "auto"
	OrderedAlways = "always"
	OrderedNever  = "never"
)

// Options configures a Runner.
type Options struct {
	// Target selects and configures the engine adapter.
	Target adapter.Config
	// Epsilon is the float comparison tolerance. Zero means the default.
	Epsilon float64
	// Ordered is one of "auto", "always", "never". In auto mode a query
	// with a top-level ORDER BY is compared positionally, everything else
	// as a multiset.
	Ordered string
	// Jobs caps how many files run concurrently. Zero or one is serial.
	Jobs int
	// Filter restricts the run to tests whose name contains the substring.
	Filter string
	// Renderer renders templates. Nil uses the Starlark renderer.
	Renderer template.Renderer
	// Logger receives progress events. Nil discards them.
	Logger *slog.Logger
}

// Runner executes test files against an engine.
type Runner struct {
	target   adapter.Config
	epsilon  float64
	ordered  string
	jobs     int
	filter   string
	renderer template.Renderer
	logger   *slog.Logger
}

// New creates a Runner from options, applying defaults.
func New(opts Options) *Runner {
	r := &Runner{
		target:   opts.Target,
		epsilon:  opts.Epsilon,
		ordered:  opts.Ordered,
		jobs:     opts.Jobs,
		filter:   opts.Filter,
		renderer: opts.Renderer,
		logger:   opts.Logger,
	}
	if r.ordered == "" {
		r.ordered = OrderedAuto
	}
	if r.jobs < 1 {
		r.jobs = 1
	}
	if r.renderer == nil {
		r.renderer = template.NewStarlarkRenderer()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.target.Type == "" {
		r.target.Type = "duckdb"
	}
	return r
}

// Run executes all files and returns the aggregated summary. Files run
// concurrently up to the jobs limit, each on its own engine connection, so a
// bad file never poisons another file's session.
func (r *Runner) Run(ctx context.Context, files []string) (*Summary, error) {
	start := time.Now()
	r.logger.Info("starting run", "files", len(files), "target", r.target.Type)

	results := make([]FileResult, len(files))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.jobs)
	for i, file := range files {
		eg.Go(func() error {
			results[i] = r.runFile(egctx, file)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Files: results, Duration: time.Since(start)}
	passed, failed, errored, skipped := summary.Counts()
	r.logger.Info("run finished",
		"passed", passed, "failed", failed, "errors", errored, "skipped", skipped,
		"duration", summary.Duration.Round(time.Millisecond))
	return summary, nil
}

// runFile processes one SQL file. Declaration-level problems (unreadable
// file, malformed annotations, duplicate mocks, givens naming undeclared
// mocks) fail the whole file; problems inside a single test only fail that
// case.
func (r *Runner) runFile(ctx context.Context, file string) FileResult {
	result := FileResult{File: file}

	src, err := os.ReadFile(file)
	if err != nil {
		result.Err = fmt.Errorf("cannot read %q: %w", file, err)
		return result
	}

	doc, err := annotation.ParseFile(file, string(src))
	if err != nil {
		result.Err = err
		return result
	}
	if len(doc.Tests) == 0 {
		return result
	}

	reg, err := mock.RegistryFromDocument(doc)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", file, err)
		return result
	}
	if err := r.checkVariables(file, string(src), reg); err != nil {
		result.Err = err
		return result
	}
	if err := checkGivens(file, doc, reg); err != nil {
		result.Err = err
		return result
	}

	ad, err := adapter.New(r.target, r.logger)
	if err != nil {
		result.Err = err
		return result
	}
	if err := ad.Connect(ctx, r.target); err != nil {
		result.Err = err
		return result
	}
	defer func() { _ = ad.Close() }()

	for _, test := range doc.Tests {
		if r.filter != "" && !strings.Contains(test.Name, r.filter) {
			result.Cases = append(result.Cases, CaseResult{
				Name: test.Name, File: file, Line: test.Line, Status: StatusSkip,
			})
			continue
		}
		result.Cases = append(result.Cases, r.runCase(ctx, ad, string(src), file, reg, test))
	}
	return result
}

// runCase executes a single declared test end to end.
func (r *Runner) runCase(ctx context.Context, ad adapter.Adapter, src, file string, reg *mock.Registry, test annotation.TestDecl) CaseResult {
	start := time.Now()
	result := CaseResult{Name: test.Name, File: file, Line: test.Line}
	fail := func(status Status, err error) CaseResult {
		result.Status = status
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	query, err := r.composeQuery(src, file, reg, test)
	if err != nil {
		return fail(StatusError, err)
	}
	result.Query = query

	r.logger.Debug("executing test", "file", file, "test", test.Name)
	rows, err := ad.Query(ctx, query)
	if err != nil {
		return fail(StatusError, &QueryExecutionError{Query: query, Err: err})
	}
	actual, scanErr := scanTable(rows)
	_ = rows.Close()
	if scanErr != nil {
		return fail(StatusError, scanErr)
	}

	expected, err := parseExpected(test)
	if err != nil {
		return fail(StatusError, err)
	}

	opts := compare.Options{Epsilon: r.epsilon, Ordered: r.isOrdered(query)}
	if err := compare.Tables(expected, actual, opts); err != nil {
		return fail(StatusFail, err)
	}

	result.Status = StatusPass
	result.Duration = time.Since(start)
	return result
}

// composeQuery resolves the test's bindings, materializes table mocks and
// renders the template into the final executable SQL.
func (r *Runner) composeQuery(src, file string, reg *mock.Registry, test annotation.TestDecl) (string, error) {
	binding, err := mock.Resolve(reg, test.Given)
	if err != nil {
		return "", fmt.Errorf("%s: test %q: %w", file, test.Name, err)
	}

	prelude, err := materialize.Build(reg, binding, materialize.NewRunID())
	if err != nil {
		return "", fmt.Errorf("%s: test %q: %w", file, test.Name, err)
	}

	bindings := make(map[string]any, len(binding.Values)+len(prelude.Names))
	for name, value := range binding.Values {
		bindings[name] = value
	}
	// Table mocks bind to their generated relation names, so templates can
	// reference a table mock wherever a relation is expected.
	for name, relation := range prelude.Names {
		bindings[name] = relation
	}

	rendered, err := r.renderer.Render(src, file, bindings)
	if err != nil {
		return "", err
	}
	return prelude.Compose(rendered), nil
}

// parseExpected parses the test's literal expectation table.
func parseExpected(test annotation.TestDecl) (*tabledata.Table, error) {
	tbl, err := tabledata.Parse(test.Expected, nil)
	if err != nil {
		return nil, fmt.Errorf("test %q: invalid expected table: %w", test.Name, err)
	}
	return tbl, nil
}

// isOrdered decides the comparison mode for one query.
func (r *Runner) isOrdered(query string) bool {
	switch r.ordered {
	case OrderedAlways:
		return true
	case OrderedNever:
		return false
	default:
		return compare.HasTopLevelOrderBy(query)
	}
}

// checkVariables verifies every top-level template variable has a declared
// mock behind it. Starlark builtins are not variables.
func (r *Runner) checkVariables(file, src string, reg *mock.Registry) error {
	v, ok := r.renderer.(interface {
		Variables(text, file string) ([]string, error)
	})
	if !ok {
		return nil
	}
	vars, err := v.Variables(src, file)
	if err != nil {
		return err
	}
	for _, name := range vars {
		if reg.Get(name) != nil {
			continue
		}
		if _, builtin := starlark.Universe[name]; builtin {
			continue
		}
		return &UnboundVariableError{File: file, Variable: name}
	}
	return nil
}

// checkGivens verifies every given across the file's tests names a declared
// mock. One undeclared name fails the file before any case runs, the same
// as a duplicate declaration.
func checkGivens(file string, doc *annotation.Document, reg *mock.Registry) error {
	for _, test := range doc.Tests {
		for _, g := range test.Given {
			if reg.Get(g.Mock) == nil {
				return fmt.Errorf("%s: test %q: %w", file, test.Name, &mock.UnknownMockError{Name: g.Mock})
			}
		}
	}
	return nil
}

// RenderCase renders one named test's composed SQL without executing it.
// Used by the render command for debugging templates and mock bindings.
func (r *Runner) RenderCase(file, caseName string) (string, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("cannot read %q: %w", file, err)
	}
	doc, err := annotation.ParseFile(file, string(src))
	if err != nil {
		return "", err
	}
	reg, err := mock.RegistryFromDocument(doc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", file, err)
	}

	for _, test := range doc.Tests {
		if caseName != "" && test.Name != caseName {
			continue
		}
		return r.composeQuery(string(src), file, reg, test)
	}
	if caseName == "" {
		return "", fmt.Errorf("%s: file declares no tests", file)
	}
	return "", fmt.Errorf("%s: no test named %q", file, caseName)
}
