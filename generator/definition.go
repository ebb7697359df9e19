package generator

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Definition is a named, reusable strategy plus parameters
type Definition struct {
	Name       string            `yaml:"name" json:"name" validate:"required,max=128"`
	Strategy   string            `yaml:"strategy" json:"strategy" validate:"required,max=128"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Definitions is a read-only lookup of definitions by name
type Definitions map[string]Definition

// NewDefinitions indexes defs by name; duplicate or invalid definitions are rejected
func NewDefinitions(defs ...Definition) (Definitions, error) {
	validate := validator.New()
	out := make(Definitions, len(defs))
	for _, d := range defs {
		if err := validate.Struct(d); err != nil {
			return nil, NewConfigurationErrorf("INVALID_DEFINITION", "generator definition %q is invalid", fmt.Errorf("%w: %v", ErrInvalidDefinition, err), d.Name)
		}
		if _, ok := out[d.Name]; ok {
			return nil, NewConfigurationErrorf("DUPLICATE_DEFINITION", "generator %q is declared twice", ErrInvalidDefinition, d.Name)
		}
		out[d.Name] = d
	}
	return out, nil
}

// Lookup returns the definition named name
func (d Definitions) Lookup(name string) (Definition, bool) {
	def, ok := d[name]
	return def, ok
}

// Names returns the declared names in sorted order
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
