package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlunit/internal/tabledata"
)

func table(t *testing.T, text string) *tabledata.Table {
	t.Helper()
	tbl, err := tabledata.Parse(text, nil)
	require.NoError(t, err)
	return tbl
}

func TestTables_EqualUnordered(t *testing.T) {
	expected := table(t, `
| id | amount |
|----|--------|
| 1  | 10.0   |
| 2  | 20.0   |
`)
	actual := table(t, `
| id | amount |
|----|--------|
| 2  | 20.0   |
| 1  | 10.0   |
`)
	assert.NoError(t, Tables(expected, actual, Options{}))
}

func TestTables_OrderedRejectsReordering(t *testing.T) {
	expected := table(t, `
| id |
|----|
| 1  |
| 2  |
`)
	actual := table(t, `
| id |
|----|
| 2  |
| 1  |
`)
	err := Tables(expected, actual, Options{Ordered: true})
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Len(t, mm.Diffs, 2)
}

func TestTables_ColumnOrderIgnored(t *testing.T) {
	expected := table(t, `
| a | b |
|---|---|
| 1 | 2 |
`)
	actual := table(t, `
| b | a |
|---|---|
| 2 | 1 |
`)
	assert.NoError(t, Tables(expected, actual, Options{}))
}

func TestTables_ColumnSetMismatch(t *testing.T) {
	expected := table(t, "| a |\n|---|")
	actual := table(t, "| b |\n|---|")

	err := Tables(expected, actual, Options{})
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, []string{"a"}, mm.ColumnsExpected)
	assert.Equal(t, []string{"b"}, mm.ColumnsActual)
}

func TestTables_RowCountMismatch(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| 1 |\n| 2 |")
	actual := table(t, "| a |\n|---|\n| 1 |")

	err := Tables(expected, actual, Options{})
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, 2, mm.RowsExpected)
	assert.Equal(t, 1, mm.RowsActual)
}

func TestTables_MultisetUnmatchedRow(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| 1 |\n| 1 |")
	actual := table(t, "| a |\n|---|\n| 1 |\n| 2 |")

	err := Tables(expected, actual, Options{})
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, []int{1}, mm.UnmatchedRows)
}

func TestTables_IntMatchesFloat(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| 1 |")
	actual := table(t, "| a |\n|---|\n| 1.0 |")

	assert.NoError(t, Tables(expected, actual, Options{}))
}

func TestTables_FloatTolerance(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| 0.3 |")

	within := &tabledata.Table{
		Columns: []string{"a"},
		Types:   map[string]string{"a": tabledata.TypeFloat},
		Rows:    []tabledata.Row{{"a": 0.1 + 0.2}},
	}
	assert.NoError(t, Tables(expected, within, Options{}))

	outside := &tabledata.Table{
		Columns: []string{"a"},
		Types:   map[string]string{"a": tabledata.TypeFloat},
		Rows:    []tabledata.Row{{"a": 0.3001}},
	}
	assert.Error(t, Tables(expected, outside, Options{}))

	// A wide tolerance accepts the same divergence.
	assert.NoError(t, Tables(expected, outside, Options{Epsilon: 0.01}))
}

func TestTables_NegativeEpsilonIsExact(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| 0.3 |")
	actual := &tabledata.Table{
		Columns: []string{"a"},
		Types:   map[string]string{"a": tabledata.TypeFloat},
		Rows:    []tabledata.Row{{"a": 0.1 + 0.2}},
	}
	assert.Error(t, Tables(expected, actual, Options{Epsilon: -1}))
}

func TestTables_ExactIntComparison(t *testing.T) {
	// Integers never borrow the float tolerance.
	expected := table(t, "| a |\n|---|\n| 1 |")
	actual := table(t, "| a |\n|---|\n| 2 |")
	assert.Error(t, Tables(expected, actual, Options{Epsilon: 10}))
}

func TestTables_NullCells(t *testing.T) {
	expected := table(t, "| a |\n|---|\n| null |")
	actual := table(t, "| a |\n|---|\n| null |")
	assert.NoError(t, Tables(expected, actual, Options{}))

	notNull := table(t, "| a |\n|---|\n| 1 |")
	assert.Error(t, Tables(expected, notNull, Options{}))
}

func TestHasTopLevelOrderBy(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"plain select", "select a from t", false},
		{"top level", "select a from t order by a", true},
		{"mixed case", "select a from t ORDER  BY a desc", true},
		{"in subquery only", "select * from (select a from t order by a) s", false},
		{"window frame only", "select rank() over (order by a) from t", false},
		{"subquery plus top level", "select * from (select a from t order by a) s order by 1", true},
		{"inside string literal", "select 'order by a' from t", false},
		{"identifier prefix", "select reorder_by from t", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasTopLevelOrderBy(tt.query))
		})
	}
}
