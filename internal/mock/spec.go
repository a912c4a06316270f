// Package mock holds mock declarations for one SQL file and resolves them
// into concrete bindings per test case.
package mock

import (
	"fmt"

	"github.com/leapstack-labs/sqlunit/internal/annotation"
	"github.com/leapstack-labs/sqlunit/internal/tabledata"
)

// Kind identifies the template value type a mock stands in for.
type Kind string

// Mock kinds. Scalar kinds bind directly into the render context; table
// kinds bind as a materialized relation name.
const (
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindSequence Kind = "sequence"
	KindMapping  Kind = "mapping"
	KindTable    Kind = "table"
)

func (k Kind) valid() bool {
	switch k {
	case KindInt, KindFloat, KindString, KindBool, KindDate, KindSequence, KindMapping, KindTable:
		return true
	}
	return false
}

// Column is one declared column of a table mock.
type Column struct {
	Name string
	Type string // tabledata type name
}

// Spec is a declared mock: name, kind, optional default, and for table kinds
// the declared column schema. Specs are immutable after parsing.
type Spec struct {
	Name    string
	Kind    Kind
	Default any // nil means "use the kind's default factory"
	Columns []Column
	Line    int
}

// SpecFromDecl validates a raw declaration into a Spec.
func SpecFromDecl(decl annotation.MockDecl) (*Spec, error) {
	kind := Kind(decl.Kind)
	if !kind.valid() {
		return nil, fmt.Errorf("mock %q: unknown kind %q", decl.Name, decl.Kind)
	}
	s := &Spec{Name: decl.Name, Kind: kind, Default: decl.Default, Line: decl.Line}
	if kind == KindTable {
		if len(decl.Columns) == 0 {
			return nil, fmt.Errorf("mock %q: table mocks must declare columns", decl.Name)
		}
		for _, e := range decl.Columns {
			typ, ok := e.Value.(string)
			if !ok {
				return nil, fmt.Errorf("mock %q: column %q: type must be a string", decl.Name, e.Key)
			}
			s.Columns = append(s.Columns, Column{Name: e.Key, Type: typ})
		}
	} else if len(decl.Columns) > 0 {
		return nil, fmt.Errorf("mock %q: columns are only valid on table mocks", decl.Name)
	}
	return s, nil
}

// ColumnNames returns the declared column names in order.
func (s *Spec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnTypes returns the declared column schema as a name -> type map.
func (s *Spec) ColumnTypes() map[string]string {
	types := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		types[c.Name] = c.Type
	}
	return types
}

// EmptyTable returns a zero-row table with the spec's declared columns.
func (s *Spec) EmptyTable() *tabledata.Table {
	return tabledata.Empty(s.ColumnNames(), s.ColumnTypes())
}

// DefaultValue resolves the spec's default, falling back to the kind's
// default factory when no default was declared: 0 for int, 0.0 for float,
// the mock's own name for string, false for bool, empty mapping/sequence,
// and a zero-row table with the declared columns for table kinds.
func (s *Spec) DefaultValue() any {
	if s.Default != nil {
		return s.Default
	}
	switch s.Kind {
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindString:
		return s.Name
	case KindBool:
		return false
	case KindDate:
		return "1970-01-01"
	case KindSequence:
		return []any{}
	case KindMapping:
		return annotation.Mapping{}
	case KindTable:
		return s.EmptyTable()
	}
	return nil
}
