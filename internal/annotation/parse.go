package annotation

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// identifierPattern matches the declaration keys inside a region:
// `sql-unit.mock "name"` and `sql-unit.test "name"`.
var identifierPattern = regexp.MustCompile(`^sql-unit\.(mock|test) "([A-Za-z0-9_.-]+)"$`)

// givenPattern matches `given "name"` keys inside a test declaration.
var givenPattern = regexp.MustCompile(`^given "([A-Za-z0-9_.-]+)"$`)

// MapEntry is one key/value pair of a mapping value, in declaration order.
type MapEntry struct {
	Key   string
	Value any
}

// Mapping is an order-preserving mapping value. YAML mappings decode into it
// so mapping mocks pivot into columns in declaration order.
type Mapping []MapEntry

// MockDecl is a raw `sql-unit.mock` declaration, before registry validation.
type MockDecl struct {
	Name    string
	Kind    string
	Default any    // nil when the declaration has no default
	Columns Mapping // table kind only: column name -> type name, ordered
	Line    int
}

// GivenDecl is one `given "mock"` override inside a test declaration.
// Table overrides arrive as the raw literal-table string.
type GivenDecl struct {
	Mock  string
	Value any
	Line  int
}

// TestDecl is a raw `sql-unit.test` declaration.
type TestDecl struct {
	Name     string
	Given    []GivenDecl
	Expected string // raw literal-table text
	Line     int
}

// Document holds every declaration extracted from one file, in source order.
type Document struct {
	File  string
	Mocks []MockDecl
	Tests []TestDecl
}

// ParseFile extracts all fenced regions from source text and parses their
// declarations into a single document. file is used for error reporting only.
func ParseFile(file, src string) (*Document, error) {
	regions, err := ExtractRegions(src)
	if err != nil {
		if mae, ok := err.(*MalformedAnnotationError); ok {
			mae.File = file
		}
		return nil, err
	}
	doc := &Document{File: file}
	for _, region := range regions {
		if err := parseRegion(doc, region); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// parseRegion parses one region's YAML and appends its declarations.
func parseRegion(doc *Document, region Region) error {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(region.Content), &root); err != nil {
		return &MalformedAnnotationError{File: doc.File, Line: region.Line, Msg: err.Error()}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil // empty region
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return &MalformedAnnotationError{File: doc.File, Line: region.Line, Msg: "region is not a mapping of declarations"}
	}

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		m := identifierPattern.FindStringSubmatch(key.Value)
		if m == nil {
			return &MalformedAnnotationError{
				File: doc.File,
				Line: region.Line + key.Line - 1,
				Msg:  fmt.Sprintf("unrecognized declaration key %q", key.Value),
			}
		}
		line := region.Line + key.Line - 1
		switch m[1] {
		case "mock":
			decl, err := parseMockDecl(m[2], value)
			if err != nil {
				return &MalformedAnnotationError{File: doc.File, Line: line, Msg: err.Error()}
			}
			decl.Line = line
			doc.Mocks = append(doc.Mocks, *decl)
		case "test":
			decl, err := parseTestDecl(m[2], value, region.Line)
			if err != nil {
				return &MalformedAnnotationError{File: doc.File, Line: line, Msg: err.Error()}
			}
			decl.Line = line
			doc.Tests = append(doc.Tests, *decl)
		}
	}
	return nil
}

func parseMockDecl(name string, node *yaml.Node) (*MockDecl, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("mock %q: declaration body must be a mapping", name)
	}
	decl := &MockDecl{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "type":
			decl.Kind = value.Value
		case "default":
			v, err := decodeValue(value)
			if err != nil {
				return nil, fmt.Errorf("mock %q: default: %w", name, err)
			}
			decl.Default = v
		case "columns":
			cols, err := decodeMapping(value)
			if err != nil {
				return nil, fmt.Errorf("mock %q: columns: %w", name, err)
			}
			decl.Columns = cols
		default:
			return nil, fmt.Errorf("mock %q: unknown field %q", name, key.Value)
		}
	}
	if decl.Kind == "" {
		return nil, fmt.Errorf("mock %q: missing type", name)
	}
	return decl, nil
}

func parseTestDecl(name string, node *yaml.Node, regionLine int) (*TestDecl, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("test %q: declaration body must be a mapping", name)
	}
	decl := &TestDecl{Name: name}
	hasExpected := false
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Value == "expected" {
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("test %q: expected must be a literal table block", name)
			}
			decl.Expected = value.Value
			hasExpected = true
			continue
		}
		if m := givenPattern.FindStringSubmatch(key.Value); m != nil {
			v, err := decodeValue(value)
			if err != nil {
				return nil, fmt.Errorf("test %q: given %q: %w", name, m[1], err)
			}
			decl.Given = append(decl.Given, GivenDecl{
				Mock:  m[1],
				Value: v,
				Line:  regionLine + key.Line - 1,
			})
			continue
		}
		return nil, fmt.Errorf("test %q: unknown field %q", name, key.Value)
	}
	if !hasExpected {
		return nil, fmt.Errorf("test %q: missing expected table", name)
	}
	return decl, nil
}

// decodeValue converts a YAML node into a Go value, decoding mappings into
// the order-preserving Mapping type.
func decodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return decodeMapping(node)
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return decodeScalar(node)
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	default:
		return nil, fmt.Errorf("unsupported YAML node kind %d", node.Kind)
	}
}

func decodeMapping(node *yaml.Node) (Mapping, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping")
	}
	out := make(Mapping, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		v, err := decodeValue(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, MapEntry{Key: node.Content[i].Value, Value: v})
	}
	return out, nil
}

func decodeScalar(node *yaml.Node) (any, error) {
	// Block scalars (|- literal tables) and quoted strings stay strings.
	if node.Style&(yaml.LiteralStyle|yaml.FoldedStyle|yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return node.Value, nil
	}
	var out any
	if err := node.Decode(&out); err != nil {
		return nil, err
	}
	// Normalize ints to int64 so downstream type checks see one kind.
	if i, ok := out.(int); ok {
		return int64(i), nil
	}
	return out, nil
}

// Get returns the value for key, for callers that treat a Mapping as a map.
func (m Mapping) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the mapping keys in declaration order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

// String renders the mapping for error messages.
func (m Mapping) String() string {
	parts := make([]string, len(m))
	for i, e := range m {
		parts[i] = fmt.Sprintf("%s: %v", e.Key, e.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
