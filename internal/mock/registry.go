package mock

import (
	"github.com/leapstack-labs/sqlunit/internal/annotation"
)

// Registry holds all mock specs declared in one file. It is write-once:
// specs are declared during parsing and read-only afterwards.
type Registry struct {
	specs map[string]*Spec
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// RegistryFromDocument builds a registry from a parsed annotation document.
func RegistryFromDocument(doc *annotation.Document) (*Registry, error) {
	reg := NewRegistry()
	for _, decl := range doc.Mocks {
		spec, err := SpecFromDecl(decl)
		if err != nil {
			return nil, err
		}
		if err := reg.Declare(spec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Declare adds a spec, failing with DuplicateMockError on a name collision.
func (r *Registry) Declare(spec *Spec) error {
	if _, exists := r.specs[spec.Name]; exists {
		return &DuplicateMockError{Name: spec.Name, Line: spec.Line}
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns the spec for name, or nil when undeclared.
func (r *Registry) Get(name string) *Spec {
	return r.specs[name]
}

// KindOf exposes the declared kind for validation elsewhere.
func (r *Registry) KindOf(name string) (Kind, error) {
	spec, ok := r.specs[name]
	if !ok {
		return "", &UnknownMockError{Name: name}
	}
	return spec.Kind, nil
}

// ResolveDefault returns the default value for name, materializing an empty
// table for table kinds with no default rows.
func (r *Registry) ResolveDefault(name string) (any, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, &UnknownMockError{Name: name}
	}
	return spec.DefaultValue(), nil
}

// Names returns the declared mock names in declaration order.
func (r *Registry) Names() []string {
	return r.order
}

// Len returns the number of declared mocks.
func (r *Registry) Len() int {
	return len(r.specs)
}
