package mock

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/leapstack-labs/sqlunit/internal/annotation"
	"github.com/leapstack-labs/sqlunit/internal/tabledata"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Binding is the resolved mock -> value mapping for one test execution.
// Scalars, mappings and sequences live in Values and bind directly into the
// render context; table values are kept separate for materialization, which
// later rebinds their names to the generated relation names.
type Binding struct {
	Values map[string]any
	Tables map[string]*tabledata.Table
	// Order lists table mock names in declaration order so the emitted
	// prelude is deterministic.
	Order []string
}

// Resolve merges a test case's given overrides over the registry defaults,
// type-checking every override against its spec's declared kind.
// A given naming an undeclared mock fails with UnknownMockError; an override
// violating its kind fails with TypeMismatchError.
func Resolve(reg *Registry, given []annotation.GivenDecl) (*Binding, error) {
	overrides := make(map[string]any, len(given))
	for _, g := range given {
		spec := reg.Get(g.Mock)
		if spec == nil {
			return nil, &UnknownMockError{Name: g.Mock}
		}
		if _, dup := overrides[g.Mock]; dup {
			return nil, fmt.Errorf("mock %q overridden twice in the same test", g.Mock)
		}
		overrides[g.Mock] = g.Value
	}

	b := &Binding{
		Values: make(map[string]any, reg.Len()),
		Tables: make(map[string]*tabledata.Table),
	}
	for _, name := range reg.Names() {
		spec := reg.Get(name)
		raw, overridden := overrides[name]
		if !overridden {
			raw = spec.DefaultValue()
		}
		value, err := coerce(spec, raw)
		if err != nil {
			return nil, err
		}
		if tbl, ok := value.(*tabledata.Table); ok {
			b.Tables[name] = tbl
			b.Order = append(b.Order, name)
			continue
		}
		b.Values[name] = value
	}
	return b, nil
}

// coerce validates raw against the spec's kind and normalizes it.
func coerce(spec *Spec, raw any) (any, error) {
	mismatch := func(detail string) error {
		return &TypeMismatchError{Mock: spec.Name, Expected: spec.Kind, Value: raw, Detail: detail}
	}
	switch spec.Kind {
	case KindInt:
		if v, ok := raw.(int64); ok {
			return v, nil
		}
		return nil, mismatch("expected an integer literal")
	case KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
		return nil, mismatch("expected a numeric literal")
	case KindString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
		return nil, mismatch("expected a string literal")
	case KindBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
		return nil, mismatch("expected true or false")
	case KindDate:
		v, ok := raw.(string)
		if !ok || !datePattern.MatchString(v) {
			return nil, mismatch("expected a date in YYYY-MM-DD form")
		}
		return v, nil
	case KindSequence:
		if v, ok := raw.([]any); ok {
			return v, nil
		}
		return nil, mismatch("expected a sequence")
	case KindMapping:
		if v, ok := raw.(annotation.Mapping); ok {
			return v, nil
		}
		return nil, mismatch("expected a mapping")
	case KindTable:
		return coerceTable(spec, raw)
	}
	return nil, mismatch("unsupported kind")
}

// coerceTable accepts either an already-materialized table (defaults) or the
// raw literal-table string of an override, then checks it against the
// declared column schema.
func coerceTable(spec *Spec, raw any) (*tabledata.Table, error) {
	var tbl *tabledata.Table
	switch v := raw.(type) {
	case *tabledata.Table:
		tbl = v
	case string:
		parsed, err := tabledata.Parse(v, spec.ColumnTypes())
		if err != nil {
			return nil, &TypeMismatchError{Mock: spec.Name, Expected: KindTable, Value: raw, Detail: err.Error()}
		}
		tbl = parsed
	default:
		return nil, &TypeMismatchError{Mock: spec.Name, Expected: KindTable, Value: raw, Detail: "expected a literal table"}
	}

	if err := matchColumns(spec, tbl); err != nil {
		return nil, err
	}
	if err := checkCellKinds(spec, tbl); err != nil {
		return nil, err
	}
	return tbl, nil
}

// matchColumns requires the override's column set to equal the declared one,
// order-independently.
func matchColumns(spec *Spec, tbl *tabledata.Table) error {
	declared := append([]string(nil), spec.ColumnNames()...)
	got := append([]string(nil), tbl.Columns...)
	sort.Strings(declared)
	sort.Strings(got)
	if len(declared) != len(got) {
		return columnMismatch(spec, tbl)
	}
	for i := range declared {
		if declared[i] != got[i] {
			return columnMismatch(spec, tbl)
		}
	}
	return nil
}

func columnMismatch(spec *Spec, tbl *tabledata.Table) error {
	return &TypeMismatchError{
		Mock:     spec.Name,
		Expected: KindTable,
		Value:    tbl.Columns,
		Detail:   fmt.Sprintf("columns do not match declared schema %v", spec.ColumnNames()),
	}
}

// checkCellKinds verifies every cell parses to its column's declared kind.
func checkCellKinds(spec *Spec, tbl *tabledata.Table) error {
	for _, col := range spec.Columns {
		for i, row := range tbl.Rows {
			cell := row[col.Name]
			if cell == nil {
				continue
			}
			if ok := cellMatches(col.Type, cell); !ok {
				return &TypeMismatchError{
					Mock:     spec.Name,
					Expected: KindTable,
					Value:    cell,
					Detail:   fmt.Sprintf("row %d column %q: value does not parse as %s", i, col.Name, col.Type),
				}
			}
		}
	}
	return nil
}

func cellMatches(colType string, cell any) bool {
	switch colType {
	case tabledata.TypeInt:
		_, ok := cell.(int64)
		return ok
	case tabledata.TypeFloat:
		switch cell.(type) {
		case float64, int64:
			return true
		}
		return false
	case tabledata.TypeBool:
		_, ok := cell.(bool)
		return ok
	case tabledata.TypeDate:
		s, ok := cell.(string)
		return ok && datePattern.MatchString(s)
	default:
		_, ok := cell.(string)
		return ok
	}
}
