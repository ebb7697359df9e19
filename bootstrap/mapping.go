package bootstrap

import (
	"bytes"
	"fmt"
	"os"

	"github.com/amirphl/orochi-idgen/generator"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Mapping is the declarative generator configuration of a set of entities
type Mapping struct {
	Generators []generator.Definition `yaml:"generators" validate:"dive"`
	Entities   []Entity               `yaml:"entities" validate:"required,min=1,dive"`
}

// Entity maps one entity to its table and generated properties
type Entity struct {
	Name       string                 `yaml:"name" validate:"required,max=128"`
	Table      string                 `yaml:"table" validate:"required,max=128"`
	Generators []generator.Definition `yaml:"generators" validate:"dive"`
	Properties []PropertyMapping      `yaml:"properties" validate:"required,min=1,dive"`
}

// PropertyMapping is the per-property configuration. Generator references a definition,
// GeneratedValue is the implicit generation kind and Markers select marker factories.
type PropertyMapping struct {
	Name           string            `yaml:"name" validate:"required,max=128"`
	Column         string            `yaml:"column"`
	Version        bool              `yaml:"version"`
	Generator      string            `yaml:"generator"`
	Strategy       string            `yaml:"strategy"`
	GeneratedValue string            `yaml:"generated_value" validate:"omitempty,oneof=auto identity sequence table uuid"`
	Parameters     map[string]string `yaml:"parameters"`
	Markers        []MarkerMapping   `yaml:"markers" validate:"dive"`
}

// MarkerMapping is one marker on a property. Only the fields its marker understands are read.
type MarkerMapping struct {
	Name string `yaml:"name" validate:"required"`

	Events string `yaml:"events"`
	Source string `yaml:"source" validate:"omitempty,oneof=vm db"`
	Style  string `yaml:"style"`

	SequenceName  string `yaml:"sequence_name"`
	InitialValue  int64  `yaml:"initial_value"`
	IncrementSize int64  `yaml:"increment_size" validate:"gte=0"`
	Optimizer     string `yaml:"optimizer"`
	ForceTable    bool   `yaml:"force_table"`
}

// customMarker selects a factory registered by the application
type customMarker string

func (m customMarker) MarkerName() string { return string(m) }

// Marker converts the mapping into a marker value
func (m MarkerMapping) Marker() (generator.Marker, error) {
	switch m.Name {
	case generator.MarkerCurrentTimestamp:
		var events generator.EventTypeSet
		if m.Events != "" {
			set, ok := generator.ParseEventTypeSet(m.Events)
			if !ok {
				return nil, fmt.Errorf("marker %s: invalid events %q", m.Name, m.Events)
			}
			events = set
		}
		return generator.CurrentTimestamp{Events: events, Source: generator.TimestampSource(m.Source)}, nil
	case generator.MarkerTenantID:
		return generator.TenantID{}, nil
	case generator.MarkerUUID:
		return generator.UUIDMarker{Style: m.Style}, nil
	case generator.MarkerSequence:
		return generator.SequenceMarker{
			Name:          m.SequenceName,
			InitialValue:  m.InitialValue,
			IncrementSize: m.IncrementSize,
			Optimizer:     m.Optimizer,
			ForceTable:    m.ForceTable,
		}, nil
	default:
		return customMarker(m.Name), nil
	}
}

// LoadMapping reads and validates a mapping file
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes a YAML mapping; unknown fields are rejected
func ParseMapping(data []byte) (*Mapping, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Mapping
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode mapping: %w", err)
	}
	if err := validator.New().Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	return &m, nil
}
