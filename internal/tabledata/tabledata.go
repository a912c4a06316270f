// Package tabledata provides the literal pipe-table format used by mock and
// expected-result declarations, plus the Table type shared with query results.
//
// A literal table is Markdown-style: a header row, a dash separator row, and
// zero or more data rows. Header cells may carry a type annotation
// ("amount :: float") overriding the type inferred from the first data row.
package tabledata

import (
	"fmt"
	"strings"
)

// Column type names understood by the cell grammar and the materializer.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeBool   = "boolean"
	TypeDate   = "date"
)

// Row is a single table row keyed by column name.
// Cell values are int64, float64, string, bool, or nil.
type Row map[string]any

// Table is an ordered set of named, typed columns with zero or more rows.
// It is produced both by parsing literal tables and by scanning query results.
type Table struct {
	// Columns holds column names in declaration order.
	Columns []string
	// Types maps column name to its type name (TypeInt, TypeFloat, ...).
	Types map[string]string
	// Rows holds data rows in source order.
	Rows []Row
}

// Empty returns a zero-row table with the given columns and types.
// Column order follows the cols slice.
func Empty(cols []string, types map[string]string) *Table {
	t := &Table{
		Columns: append([]string(nil), cols...),
		Types:   make(map[string]string, len(cols)),
	}
	for _, c := range cols {
		typ := types[c]
		if typ == "" {
			typ = TypeString
		}
		t.Types[c] = typ
	}
	return t
}

// ParseError reports a malformed literal table.
type ParseError struct {
	Line int // 1-based line within the table text
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("literal table line %d: %s", e.Line, e.Msg)
}

// Parse parses a pipe-delimited literal table. The schema argument supplies
// declared column types (may be nil); header annotations ("col :: type")
// override it, and any remaining untyped column falls back to the type
// inferred from the first data row, or string for an all-header table.
func Parse(text string, schema map[string]string) (*Table, error) {
	lines := tableLines(text)
	if len(lines) == 0 {
		return nil, &ParseError{Line: 1, Msg: "empty table"}
	}
	if len(lines) < 2 {
		return nil, &ParseError{Line: 1, Msg: "missing separator row"}
	}

	header, err := splitRow(lines[0].text, lines[0].num)
	if err != nil {
		return nil, err
	}

	t := &Table{Types: make(map[string]string, len(header))}
	annotations := make(map[string]string)
	for _, cell := range header {
		name := cell
		if i := strings.Index(cell, "::"); i >= 0 {
			name = strings.TrimSpace(cell[:i])
			if typ := strings.TrimSpace(cell[i+2:]); typ != "" {
				annotations[name] = normalizeType(typ)
			}
		}
		if name == "" {
			return nil, &ParseError{Line: lines[0].num, Msg: "empty column name in header"}
		}
		t.Columns = append(t.Columns, name)
	}

	if !isSeparator(lines[1].text) {
		return nil, &ParseError{Line: lines[1].num, Msg: "expected separator row of dashes"}
	}

	for _, ln := range lines[2:] {
		cells, err := splitRow(ln.text, ln.num)
		if err != nil {
			return nil, err
		}
		if len(cells) != len(t.Columns) {
			return nil, &ParseError{
				Line: ln.num,
				Msg:  fmt.Sprintf("row has %d cells, header has %d columns", len(cells), len(t.Columns)),
			}
		}
		row := make(Row, len(cells))
		for i, cell := range cells {
			row[t.Columns[i]] = ParseCell(cell)
		}
		t.Rows = append(t.Rows, row)
	}

	// Resolve column types: schema, then annotations, then inference.
	for _, col := range t.Columns {
		if typ, ok := schema[col]; ok {
			t.Types[col] = normalizeType(typ)
		}
	}
	for col, typ := range annotations {
		t.Types[col] = typ
	}
	for _, col := range t.Columns {
		if t.Types[col] != "" {
			continue
		}
		if len(t.Rows) > 0 {
			t.Types[col] = TypeOf(t.Rows[0][col])
		} else {
			t.Types[col] = TypeString
		}
	}

	return t, nil
}

// ParseCell converts a single cell token into its typed value.
// Double-quoted tokens are strings, bare digits integers, digits with a
// decimal point floats, true/false booleans. Anything else stays an opaque
// string token (date literals are written quoted and compared as strings).
func ParseCell(s string) any {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case s == "null":
		return nil
	case s == "true":
		return true
	case s == "false":
		return false
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		return s[1 : len(s)-1]
	}
	if v, ok := parseInt(s); ok {
		return v
	}
	if v, ok := parseFloat(s); ok {
		return v
	}
	return s
}

// TypeOf returns the column type name for a parsed cell value.
func TypeOf(v any) string {
	switch v.(type) {
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case bool:
		return TypeBool
	default:
		return TypeString
	}
}

// Format re-serializes the table in the literal pipe syntax, padding cells
// so the columns line up. Parsing the output yields an equivalent table.
func (t *Table) Format() string {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		cells[r] = make([]string, len(t.Columns))
		for i, col := range t.Columns {
			s := FormatCell(row[col])
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	var b strings.Builder
	writeRow := func(vals []string) {
		b.WriteString("|")
		for i, v := range vals {
			fmt.Fprintf(&b, " %-*s |", widths[i], v)
		}
		b.WriteString("\n")
	}
	writeRow(t.Columns)
	b.WriteString("|")
	for i := range t.Columns {
		b.WriteString(strings.Repeat("-", widths[i]+2))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range cells {
		writeRow(row)
	}
	return b.String()
}

// FormatCell renders a cell value in the literal grammar.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return `"` + val + `"`
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return formatFloat(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

type tableLine struct {
	text string
	num  int // 1-based line number within the table text
}

func tableLines(text string) []tableLine {
	var out []tableLine
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, tableLine{text: strings.TrimSpace(line), num: i + 1})
	}
	return out
}

// splitRow splits "| a | b |" into its cell tokens.
func splitRow(line string, num int) ([]string, error) {
	if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
		return nil, &ParseError{Line: num, Msg: "row must start and end with '|'"}
	}
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts)-2)
	for _, p := range parts[1 : len(parts)-1] {
		cells = append(cells, strings.TrimSpace(p))
	}
	if len(cells) == 0 {
		return nil, &ParseError{Line: num, Msg: "row has no cells"}
	}
	return cells, nil
}

func isSeparator(line string) bool {
	seen := false
	for _, r := range line {
		switch r {
		case '|', ' ':
		case '-':
			seen = true
		default:
			return false
		}
	}
	return seen
}

func normalizeType(typ string) string {
	switch strings.ToLower(typ) {
	case "int", "integer", "bigint":
		return TypeInt
	case "float", "double", "real", "decimal", "numeric":
		return TypeFloat
	case "bool", "boolean":
		return TypeBool
	case "date":
		return TypeDate
	case "str", "string", "text", "varchar":
		return TypeString
	default:
		return strings.ToLower(typ)
	}
}
