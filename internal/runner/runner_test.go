package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlunit/internal/mock"
	"github.com/leapstack-labs/sqlunit/internal/testutil"
	"github.com/leapstack-labs/sqlunit/pkg/adapter"
	_ "github.com/leapstack-labs/sqlunit/pkg/adapters/duckdb"
)

const ordersFixture = `/*
  # sql-unit
  sql-unit.mock "threshold":
    type: int
    default: 100
  sql-unit.mock "orders":
    type: table
    columns:
      id: int
      amount: float
  sql-unit.test "keeps_large_orders":
    given "threshold": 50
    given "orders": |-
      | id | amount |
      |----|--------|
      | 1  | 60.0   |
      | 2  | 10.0   |
    expected: |-
      | id | amount |
      |----|--------|
      | 1  | 60.0   |
  sql-unit.test "empty_default_is_empty_result":
    expected: |-
      | id :: int | amount :: float |
      |-----------|-----------------|
*/
select id, amount from {{ orders }} where amount > {{ threshold }}
`

const failingFixture = `/*
  # sql-unit
  sql-unit.mock "n":
    type: int
    default: 1
  sql-unit.test "wrong_expectation":
    expected: |-
      | n |
      |---|
      | 2 |
*/
select {{ n }} as n
`

const badSQLFixture = `/*
  # sql-unit
  sql-unit.mock "n":
    type: int
    default: 1
  sql-unit.test "engine_rejects_query":
    expected: |-
      | n |
      |---|
      | 1 |
*/
select frobnicate({{ n }}) as n
`

const unboundFixture = `/*
  # sql-unit
  sql-unit.test "never_runs":
    expected: |-
      | n |
      |---|
*/
select {{ missing }} as n
`

const pricingSummaryFixture = `/*
  # sql-unit
  sql-unit.mock "delta":
    type: int
    default: 90
  sql-unit.mock "lineitem":
    type: table
    columns:
      l_returnflag: string
      l_linestatus: int
      l_quantity: float
      l_extendedprice: float
      l_discount: float
      l_tax: float
      l_shipdate: date
  sql-unit.test "pricing_summary_report":
    given "delta": 30
    given "lineitem": |-
      | l_returnflag | l_linestatus | l_quantity | l_extendedprice | l_discount | l_tax | l_shipdate |
      |--------------|--------------|------------|-----------------|------------|-------|------------|
      | "y"          | 0            | 10.0       | 100.0           | 0.05       | 0.0   | 1998-12-01 |
      | "y"          | 0            | 20.0       | 200.0           | 0.10       | 0.0   | 1998-11-15 |
      | "n"          | 1            | 30.0       | 250.0           | 0.15       | 0.0   | 1998-10-10 |
      | "y"          | 0            | 40.0       | 300.0           | 0.10       | 0.0   | 1998-09-05 |
    expected: |-
      | l_returnflag | l_linestatus | sum_qty :: float | sum_base_price :: float | sum_disc_price :: float | sum_charge :: float | avg_qty :: float | avg_price :: float | avg_disc :: float | count_order :: int |
      |--------------|--------------|------------------|-------------------------|-------------------------|---------------------|------------------|--------------------|-------------------|--------------------|
      | "n"          | 1            | 30.0             | 250.0                   | 212.5                   | 212.5               | 30.0             | 250.0              | 0.15              | 1                  |
      | "y"          | 0            | 40.0             | 300.0                   | 270.0                   | 270.0               | 40.0             | 300.0              | 0.10              | 1                  |
*/
select
    l_returnflag,
    l_linestatus,
    sum(l_quantity) as sum_qty,
    sum(l_extendedprice) as sum_base_price,
    sum(l_extendedprice * (1 - l_discount)) as sum_disc_price,
    sum(l_extendedprice * (1 - l_discount) * (1 + l_tax)) as sum_charge,
    avg(l_quantity) as avg_qty,
    avg(l_extendedprice) as avg_price,
    avg(l_discount) as avg_disc,
    count(*) as count_order
from {{ lineitem }}
where l_shipdate <= DATE '1998-12-01' - interval ({{ delta }}) day
group by l_returnflag, l_linestatus
order by l_returnflag, l_linestatus
`

const undeclaredGivenFixture = `/*
  # sql-unit
  sql-unit.mock "n":
    type: int
    default: 1
  sql-unit.test "bad_override":
    given "ghost": 5
    expected: |-
      | n |
      |---|
      | 1 |
  sql-unit.test "sibling":
    expected: |-
      | n |
      |---|
      | 1 |
*/
select {{ n }} as n
`

const orderedFixture = `/*
  # sql-unit
  sql-unit.mock "items":
    type: table
    columns:
      id: int
  sql-unit.test "sorted_descending":
    given "items": |-
      | id |
      |----|
      | 1  |
      | 3  |
      | 2  |
    expected: |-
      | id |
      |----|
      | 3  |
      | 2  |
      | 1  |
*/
select id from {{ items }} order by id desc
`

const mappingFixture = `/*
  # sql-unit
  sql-unit.mock "rates":
    type: mapping
    default:
      us: 1.5
      eu: 2.5
  sql-unit.test "pivots_each_entry":
    expected: |-
      | region | rate |
      |--------|------|
      | "us"   | 1.5  |
      | "eu"   | 2.5  |
*/
select * from (
{% for region, rate in rates.items() %}
select '{{ region }}' as region, cast({{ rate }} as double) as rate union all
{% endfor %}
select null, null where false
) t
`

const lineitemFixture = `/*
  # sql-unit
  sql-unit.mock "cutoff":
    type: date
    default: "1998-09-02"
  sql-unit.mock "lineitem":
    type: table
    columns:
      returnflag: string
      quantity: float
      shipdate: date
  sql-unit.test "sums_shipped_quantities":
    given "lineitem": |-
      | returnflag | quantity | shipdate   |
      |------------|----------|------------|
      | "A"        | 2.0      | 1998-08-01 |
      | "A"        | 3.0      | 1998-09-01 |
      | "A"        | 7.0      | 1998-10-01 |
      | "R"        | 4.0      | 1998-01-15 |
    expected: |-
      | returnflag | sum_qty :: float | cnt :: int |
      |------------|------------------|------------|
      | "A"        | 5.0              | 2          |
      | "R"        | 4.0              | 1          |
*/
select returnflag, sum(quantity) as sum_qty, count(*) as cnt
from {{ lineitem }}
where shipdate <= DATE '{{ cutoff }}'
group by returnflag
order by returnflag
`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func duckdbRunner(opts Options) *Runner {
	opts.Target = adapter.Config{Type: "duckdb"}
	return New(opts)
}

func caseByName(t *testing.T, fr FileResult, name string) CaseResult {
	t.Helper()
	for _, c := range fr.Cases {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no case named %q in %s", name, fr.File)
	return CaseResult{}
}

func TestRun_PassingCases(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "orders.sql", ordersFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	require.NoError(t, summary.Files[0].Err)

	passed, failed, errored, skipped := summary.Counts()
	assert.Equal(t, 2, passed)
	assert.Zero(t, failed)
	assert.Zero(t, errored)
	assert.Zero(t, skipped)
	assert.True(t, summary.OK())

	c := caseByName(t, summary.Files[0], "keeps_large_orders")
	assert.Equal(t, StatusPass, c.Status)
	assert.Contains(t, c.Query, "with orders_")
}

func TestRun_AggregationWithDateCutoff(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "lineitem.sql", lineitemFixture)

	r := duckdbRunner(Options{Logger: testutil.NewTestLogger(t)})
	summary, err := r.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.NoError(t, summary.Files[0].Err)

	c := caseByName(t, summary.Files[0], "sums_shipped_quantities")
	require.Equal(t, StatusPass, c.Status, "case error: %v", c.Err)
	assert.Contains(t, c.Query, "DATE '1998-09-02'")
	assert.Contains(t, c.Query, "with lineitem_")
}

func TestRun_PricingSummaryAggregation(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "tpch_q1.sql", pricingSummaryFixture)

	r := duckdbRunner(Options{})
	summary, err := r.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.NoError(t, summary.Files[0].Err)

	c := caseByName(t, summary.Files[0], "pricing_summary_report")
	require.Equal(t, StatusPass, c.Status, "case error: %v", c.Err)
	assert.Contains(t, c.Query, "interval (30) day")

	// Unchanged inputs give the same verdict on a second run.
	again, err := r.Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.NoError(t, again.Files[0].Err)
	assert.Equal(t, StatusPass, caseByName(t, again.Files[0], "pricing_summary_report").Status)
}

func TestRun_FailingCase(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "fail.sql", failingFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)

	c := caseByName(t, summary.Files[0], "wrong_expectation")
	assert.Equal(t, StatusFail, c.Status)
	assert.Error(t, c.Err)
	assert.False(t, summary.OK())
}

func TestRun_EngineErrorIsolatedToCase(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "bad.sql", badSQLFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.NoError(t, summary.Files[0].Err, "an engine error fails the case, not the file")

	c := caseByName(t, summary.Files[0], "engine_rejects_query")
	assert.Equal(t, StatusError, c.Status)

	var qerr *QueryExecutionError
	require.ErrorAs(t, c.Err, &qerr)
	assert.Contains(t, qerr.Query, "frobnicate")
}

func TestRun_UnboundVariableFailsFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "unbound.sql", unboundFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)

	var unbound *UnboundVariableError
	require.ErrorAs(t, summary.Files[0].Err, &unbound)
	assert.Equal(t, "missing", unbound.Variable)
	assert.Empty(t, summary.Files[0].Cases)
}

func TestRun_UndeclaredGivenFailsFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "ghost.sql", undeclaredGivenFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)

	var unknown *mock.UnknownMockError
	require.ErrorAs(t, summary.Files[0].Err, &unknown)
	assert.Equal(t, "ghost", unknown.Name)
	assert.Empty(t, summary.Files[0].Cases, "sibling tests do not run")
	assert.False(t, summary.OK())
}

func TestRun_FilterSkipsNonMatching(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "orders.sql", ordersFixture)

	summary, err := duckdbRunner(Options{Filter: "keeps_large"}).Run(context.Background(), []string{file})
	require.NoError(t, err)

	passed, _, _, skipped := summary.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, StatusSkip, caseByName(t, summary.Files[0], "empty_default_is_empty_result").Status)
}

func TestRun_OrderedAutoRespectsOrderBy(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "ordered.sql", orderedFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	assert.Equal(t, StatusPass, caseByName(t, summary.Files[0], "sorted_descending").Status)

	// Forcing ordered-never still passes (same multiset); forcing a
	// shuffled expectation under ordered comparison is covered in compare.
	summary, err = duckdbRunner(Options{Ordered: OrderedNever}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	assert.True(t, summary.OK())
}

func TestRun_MappingPivotsInDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "rates.sql", mappingFixture)

	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{file})
	require.NoError(t, err)
	require.NoError(t, summary.Files[0].Err)
	assert.True(t, summary.OK(), "summary: %+v", summary.Files[0])
}

func TestRun_MultipleFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFixture(t, dir, "a.sql", ordersFixture),
		writeFixture(t, dir, "b.sql", failingFixture),
		writeFixture(t, dir, "c.sql", orderedFixture),
	}

	summary, err := duckdbRunner(Options{Jobs: 4}).Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, summary.Files, 3)

	passed, failed, errored, _ := summary.Counts()
	assert.Equal(t, 3, passed)
	assert.Equal(t, 1, failed)
	assert.Zero(t, errored)
}

func TestRun_UnreadableFile(t *testing.T) {
	summary, err := duckdbRunner(Options{}).Run(context.Background(), []string{"/nonexistent/x.sql"})
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.Error(t, summary.Files[0].Err)
	assert.False(t, summary.OK())
}

func TestRenderCase(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "orders.sql", ordersFixture)
	r := duckdbRunner(Options{})

	sql, err := r.RenderCase(file, "keeps_large_orders")
	require.NoError(t, err)
	assert.Contains(t, sql, "with orders_")
	assert.Contains(t, sql, "cast(60.0 as double) as amount")
	assert.Contains(t, sql, "> 50")
	assert.NotContains(t, sql, "{{")

	// Empty case name renders the first declared test.
	first, err := r.RenderCase(file, "")
	require.NoError(t, err)
	assert.Contains(t, first, "> 50")

	_, err = r.RenderCase(file, "no_such_test")
	assert.ErrorContains(t, err, "no test named")
}

func TestRenderCase_NoTests(t *testing.T) {
	dir := t.TempDir()
	file := writeFixture(t, dir, "plain.sql", "select 1\n")

	_, err := duckdbRunner(Options{}).RenderCase(file, "")
	assert.ErrorContains(t, err, "declares no tests")
}

func TestSummaryCounts_FileErrorCountsOnce(t *testing.T) {
	s := &Summary{Files: []FileResult{
		{File: "a.sql", Err: errors.New("boom")},
		{File: "b.sql", Cases: []CaseResult{
			{Status: StatusPass}, {Status: StatusFail}, {Status: StatusSkip},
		}},
	}}
	passed, failed, errored, skipped := s.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, errored)
	assert.Equal(t, 1, skipped)
	assert.False(t, s.OK())
}
