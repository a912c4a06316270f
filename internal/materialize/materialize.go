// Package materialize turns table-kind bindings into SQL preludes that
// inject literal rows into the engine's namespace as named relations.
package materialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/sqlunit/internal/mock"
	"github.com/leapstack-labs/sqlunit/internal/tabledata"
)

// Prelude is the materialization result for one test execution: the WITH
// clause text defining every table binding, and the relation name each table
// mock resolves to in the render context.
type Prelude struct {
	CTEs  []string          // one "name as (select ...)" fragment per table, in declaration order
	Names map[string]string // mock name -> generated relation name
}

// NewRunID returns a short unique suffix for relation names so materialized
// relations cannot collide with identifiers already used by the template.
func NewRunID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// Build produces the prelude for a resolved binding. Relation names are
// `<mock>_<runID>`; the same name is used whether the binding carries rows
// or fell back to the empty default, so templates reference mocks
// identically in both cases.
func Build(reg *mock.Registry, binding *mock.Binding, runID string) (*Prelude, error) {
	p := &Prelude{Names: make(map[string]string, len(binding.Tables))}
	for _, name := range binding.Order {
		spec := reg.Get(name)
		if spec == nil {
			return nil, &mock.UnknownMockError{Name: name}
		}
		relation := fmt.Sprintf("%s_%s", name, runID)
		body, err := unionedSelects(spec, binding.Tables[name])
		if err != nil {
			return nil, fmt.Errorf("mock %q: %w", name, err)
		}
		p.Names[name] = relation
		p.CTEs = append(p.CTEs, fmt.Sprintf("%s as (%s)", relation, body))
	}
	return p, nil
}

// Compose joins the prelude with the rendered template body. When the body
// already opens its own WITH clause the prelude's CTEs are merged into it,
// keeping the statement a single valid query.
func (p *Prelude) Compose(body string) string {
	if len(p.CTEs) == 0 {
		return body
	}
	withClause := "with " + strings.Join(p.CTEs, ",\n")

	trimmed := strings.TrimSpace(body)
	if len(trimmed) >= 5 && strings.EqualFold(trimmed[:4], "with") && isSpace(trimmed[4]) {
		rest := strings.TrimSpace(trimmed[4:])
		return withClause + ",\n" + rest
	}
	return withClause + "\n" + trimmed
}

// unionedSelects renders a table's rows as chained SELECT statements with
// typed casts on every cell. Zero rows produce a single `where false` select
// so the relation exists with the declared columns and no data.
func unionedSelects(spec *mock.Spec, tbl *tabledata.Table) (string, error) {
	if tbl == nil {
		tbl = spec.EmptyTable()
	}
	if len(tbl.Rows) == 0 {
		aliases := make([]string, len(spec.Columns))
		for i, col := range spec.Columns {
			aliases[i] = fmt.Sprintf("cast(null as %s) as %s", sqlType(col.Type), col.Name)
		}
		return "select " + strings.Join(aliases, ", ") + "\nwhere false", nil
	}

	selects := make([]string, 0, len(tbl.Rows))
	for i, row := range tbl.Rows {
		aliases := make([]string, len(spec.Columns))
		for j, col := range spec.Columns {
			lit, err := Literal(row[col.Name], col.Type)
			if err != nil {
				return "", fmt.Errorf("row %d column %q: %w", i, col.Name, err)
			}
			aliases[j] = fmt.Sprintf("cast(%s as %s) as %s", lit, sqlType(col.Type), col.Name)
		}
		selects = append(selects, "select "+strings.Join(aliases, ", "))
	}
	return strings.Join(selects, "\nunion all\n"), nil
}

// Literal renders a cell value as an engine-parseable SQL literal. Dates use
// the typed DATE constructor to avoid implicit-cast surprises.
func Literal(v any, colType string) (string, error) {
	if v == nil {
		return "null", nil
	}
	switch colType {
	case tabledata.TypeDate:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("date cell must be a string, got %T", v)
		}
		return fmt.Sprintf("DATE '%s'", escapeString(s)), nil
	}
	switch val := v.(type) {
	case string:
		return "'" + escapeString(val) + "'", nil
	case int64:
		return fmt.Sprintf("%d", val), nil
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported cell type %T", v)
	}
}

func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// sqlType maps a tabledata column type to the engine type used in casts.
func sqlType(colType string) string {
	switch colType {
	case tabledata.TypeInt:
		return "integer"
	case tabledata.TypeFloat:
		return "double"
	case tabledata.TypeBool:
		return "boolean"
	case tabledata.TypeDate:
		return "date"
	default:
		return "varchar"
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
