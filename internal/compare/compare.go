// Package compare checks an executed query's result against the literal
// table a test declares as its expectation.
package compare

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/leapstack-labs/sqlunit/internal/tabledata"
)

// DefaultEpsilon is the absolute tolerance applied to float comparisons.
const DefaultEpsilon = 1e-9

// Options controls one comparison.
type Options struct {
	// Epsilon is the absolute tolerance for float cells. Zero means
	// DefaultEpsilon; exact comparison requires a negative value.
	Epsilon float64
	// Ordered compares rows positionally. When false rows are matched as a
	// multiset, so result order does not matter.
	Ordered bool
}

func (o Options) epsilon() float64 {
	if o.Epsilon == 0 {
		return DefaultEpsilon
	}
	if o.Epsilon < 0 {
		return 0
	}
	return o.Epsilon
}

// CellDiff points at a single cell whose actual value diverged.
type CellDiff struct {
	Row      int
	Column   string
	Expected any
	Actual   any
}

func (d CellDiff) String() string {
	return fmt.Sprintf("row %d, column %q: expected %v, got %v",
		d.Row, d.Column, formatCell(d.Expected), formatCell(d.Actual))
}

// MismatchError reports why expected and actual differ. Exactly one of the
// detail fields is populated depending on which check failed first.
type MismatchError struct {
	// ColumnsExpected and ColumnsActual are set when the column sets differ.
	ColumnsExpected []string
	ColumnsActual   []string
	// RowsExpected and RowsActual are set when the row counts differ.
	RowsExpected int
	RowsActual   int
	// Diffs is set when individual cells differ (ordered mode).
	Diffs []CellDiff
	// UnmatchedRows holds expected row indexes with no matching actual row
	// (multiset mode).
	UnmatchedRows []int
}

func (e *MismatchError) Error() string {
	switch {
	case e.ColumnsExpected != nil || e.ColumnsActual != nil:
		return fmt.Sprintf("result columns %v do not match expected columns %v",
			e.ColumnsActual, e.ColumnsExpected)
	case len(e.Diffs) > 0:
		parts := make([]string, len(e.Diffs))
		for i, d := range e.Diffs {
			parts[i] = d.String()
		}
		return "result differs from expected:\n  " + strings.Join(parts, "\n  ")
	case len(e.UnmatchedRows) > 0:
		return fmt.Sprintf("%d expected row(s) have no matching result row (rows %v)",
			len(e.UnmatchedRows), e.UnmatchedRows)
	default:
		return fmt.Sprintf("expected %d row(s), got %d", e.RowsExpected, e.RowsActual)
	}
}

// Tables compares actual against expected. A nil return means the result
// matches; any divergence returns a *MismatchError describing the first
// failed check.
func Tables(expected, actual *tabledata.Table, opts Options) error {
	if err := compareColumns(expected, actual); err != nil {
		return err
	}
	if len(expected.Rows) != len(actual.Rows) {
		return &MismatchError{RowsExpected: len(expected.Rows), RowsActual: len(actual.Rows)}
	}
	if opts.Ordered {
		return compareOrdered(expected, actual, opts.epsilon())
	}
	return compareMultiset(expected, actual, opts.epsilon())
}

// compareColumns matches column sets by name, order-independently. Result
// column order is an engine detail, not part of the contract.
func compareColumns(expected, actual *tabledata.Table) error {
	want := append([]string(nil), expected.Columns...)
	got := append([]string(nil), actual.Columns...)
	sort.Strings(want)
	sort.Strings(got)
	equal := len(want) == len(got)
	for i := 0; equal && i < len(want); i++ {
		equal = want[i] == got[i]
	}
	if !equal {
		return &MismatchError{ColumnsExpected: expected.Columns, ColumnsActual: actual.Columns}
	}
	return nil
}

func compareOrdered(expected, actual *tabledata.Table, eps float64) error {
	var diffs []CellDiff
	for i, want := range expected.Rows {
		got := actual.Rows[i]
		for _, col := range expected.Columns {
			if !cellsEqual(want[col], got[col], eps) {
				diffs = append(diffs, CellDiff{Row: i, Column: col, Expected: want[col], Actual: got[col]})
			}
		}
	}
	if len(diffs) > 0 {
		return &MismatchError{Diffs: diffs}
	}
	return nil
}

// compareMultiset greedily pairs each expected row with an unused matching
// actual row. Row counts are already known to be equal, so any expected row
// left unpaired means the multisets differ.
func compareMultiset(expected, actual *tabledata.Table, eps float64) error {
	used := make([]bool, len(actual.Rows))
	var unmatched []int
	for i, want := range expected.Rows {
		found := false
		for j, got := range actual.Rows {
			if used[j] || !rowsEqual(expected.Columns, want, got, eps) {
				continue
			}
			used[j] = true
			found = true
			break
		}
		if !found {
			unmatched = append(unmatched, i)
		}
	}
	if len(unmatched) > 0 {
		return &MismatchError{UnmatchedRows: unmatched}
	}
	return nil
}

func rowsEqual(columns []string, want, got tabledata.Row, eps float64) bool {
	for _, col := range columns {
		if !cellsEqual(want[col], got[col], eps) {
			return false
		}
	}
	return true
}

// cellsEqual compares two cells. Numeric cells compare across int64 and
// float64 so `1` matches `1.0`; floats use the configured tolerance.
func cellsEqual(want, got any, eps float64) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	if wf, wok := asFloat(want); wok {
		gf, gok := asFloat(got)
		if !gok {
			return false
		}
		if _, wi := want.(int64); wi {
			if _, gi := got.(int64); gi {
				return want == got
			}
		}
		return math.Abs(wf-gf) <= eps
	}
	return want == got
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatCell(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// HasTopLevelOrderBy reports whether the query orders its final result.
// An ORDER BY inside parentheses (a subquery or window frame) does not make
// the outer result ordered, so only depth-zero occurrences count.
func HasTopLevelOrderBy(query string) bool {
	depth := 0
	lower := strings.ToLower(query)
	for i := 0; i < len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '\'':
			for i++; i < len(lower) && lower[i] != '\''; i++ {
			}
		case 'o':
			if depth != 0 {
				continue
			}
			if matchKeyword(lower, i, "order") {
				j := i + len("order")
				for j < len(lower) && isSpaceByte(lower[j]) {
					j++
				}
				if matchKeyword(lower, j, "by") {
					return true
				}
			}
		}
	}
	return false
}

// matchKeyword reports a whole-word, case-folded match of kw at position i.
func matchKeyword(s string, i int, kw string) bool {
	if i+len(kw) > len(s) || s[i:i+len(kw)] != kw {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	if i+len(kw) < len(s) && isWordByte(s[i+len(kw)]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
