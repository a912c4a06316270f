package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlunit/internal/cli/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlunit v")
	assert.Contains(t, out, "DuckDB")
}

func TestTestCommand_PassingProject(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	out, _, err := execute(t, "test", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "keeps_large_orders")
	assert.Contains(t, out, "**passed**: 1")
}

func TestTestCommand_FilterSkipsEverything(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	out, _, err := execute(t, "test", "--config", cfg, "--run", "no_such_test")
	require.NoError(t, err, "skipped tests do not fail the run")
	assert.Contains(t, out, "**skipped**: 1")
}

func TestTestCommand_FailingProjectReturnsError(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	model := filepath.Join(project, "models", "orders.sql")
	src := `/* # sql-unit
sql-unit.mock "n":
  type: int
sql-unit.test "wrong":
  given "n": 1
  expected: |
    | n |
    | - |
    | 2 |
*/
select {{ n }} as n
`
	require.NoError(t, os.WriteFile(model, []byte(src), 0o644))

	_, _, err := execute(t, "test", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 test(s) failed")
}

func TestTestCommand_ExplicitPathArgument(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	_, _, err := execute(t, "test", "--config", cfg, filepath.Join(project, "models"))
	require.NoError(t, err)
}

func TestListCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	out, _, err := execute(t, "list", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "orders.sql")
	assert.Contains(t, out, "mock threshold (int)")
	assert.Contains(t, out, "mock orders (table)")
	assert.Contains(t, out, "test keeps_large_orders")
}

func TestListCommand_JSON(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")

	out, _, err := execute(t, "list", "--config", cfg, "-o", "json")
	require.NoError(t, err)

	var listed []struct {
		File  string   `json:"file"`
		Mocks []string `json:"mocks"`
		Tests []string `json:"tests"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, []string{"keeps_large_orders"}, listed[0].Tests)
}

func TestRenderCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)
	cfg := filepath.Join(project, "sqlunit.yaml")
	model := filepath.Join(project, "models", "orders.sql")

	out, _, err := execute(t, "render", model, "--config", cfg, "--case", "keeps_large_orders")
	require.NoError(t, err)
	assert.Contains(t, out, "with orders_")
	assert.Contains(t, out, "> 10")
	assert.NotContains(t, out, "{{")
}

func TestRootCommand_InvalidConfigPath(t *testing.T) {
	_, _, err := execute(t, "test", "--config", "/no/such/sqlunit.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
