// Package schema holds the in-memory model of tables and sequences that generators contribute, and exports it to a store
package schema

import (
	"fmt"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/expectation"
)

// SQLContext carries what is needed to render SQL for one store
type SQLContext struct {
	Dialect        dialect.Dialect
	DefaultCatalog string
	DefaultSchema  string
}

// Format renders a qualified name, filling in the default catalog and schema when absent
func (c SQLContext) Format(name QualifiedName) string {
	if name.Catalog == "" && name.Schema == "" {
		name.Catalog = c.DefaultCatalog
		name.Schema = c.DefaultSchema
	}
	return name.Render()
}

// InitCommand is a statement run once right after its table is created
type InitCommand struct {
	Render      func(ctx SQLContext) string
	Expectation expectation.Expectation
}

// Column is a column of a counter table
type Column struct {
	Name string
}

// Table is a table registered by a generator
type Table struct {
	Name         QualifiedName
	PhysicalName QualifiedName
	Columns      []Column
	Options      string
	Comment      string
	InitCommands []InitCommand

	naming PhysicalNamingStrategy
}

// AddColumn adds a column after applying the physical naming and returns its physical name
func (t *Table) AddColumn(logical string) string {
	name := t.naming.PhysicalColumnName(logical)
	for _, c := range t.Columns {
		if c.Name == name {
			return name
		}
	}
	t.Columns = append(t.Columns, Column{Name: name})
	return name
}

// AddInitCommand schedules cmd to run after the table is created
func (t *Table) AddInitCommand(cmd InitCommand) {
	t.InitCommands = append(t.InitCommands, cmd)
}

// Sequence is a native sequence registered by a generator
type Sequence struct {
	Name          QualifiedName
	PhysicalName  QualifiedName
	InitialValue  int64
	IncrementSize int64
}

// Database is the set of exportable objects contributed during bootstrap.
// It is not safe for concurrent registration.
type Database struct {
	naming    PhysicalNamingStrategy
	tables    []*Table
	sequences []*Sequence
	byTable   map[string]*Table
	bySeq     map[string]*Sequence
}

// NewDatabase creates an empty model; a nil naming strategy uses gorm naming without prefix
func NewDatabase(naming PhysicalNamingStrategy) *Database {
	if naming == nil {
		naming = NewGormNaming("")
	}
	return &Database{
		naming:  naming,
		byTable: make(map[string]*Table),
		bySeq:   make(map[string]*Sequence),
	}
}

// LocateTable returns the registered table with the given logical name, or nil
func (d *Database) LocateTable(name QualifiedName) *Table {
	return d.byTable[name.Render()]
}

// CreateTable registers a new table. It fails if the logical name is taken.
func (d *Database) CreateTable(name QualifiedName) (*Table, error) {
	key := name.Render()
	if _, ok := d.byTable[key]; ok {
		return nil, fmt.Errorf("table %s already registered", key)
	}
	t := &Table{
		Name:         name,
		PhysicalName: physical(name, d.naming.PhysicalTableName),
		naming:       d.naming,
	}
	d.byTable[key] = t
	d.tables = append(d.tables, t)
	return t, nil
}

// LocateSequence returns the registered sequence with the given logical name, or nil
func (d *Database) LocateSequence(name QualifiedName) *Sequence {
	return d.bySeq[name.Render()]
}

// CreateSequence registers a new sequence. It fails if the logical name is taken.
func (d *Database) CreateSequence(name QualifiedName, initialValue, incrementSize int64) (*Sequence, error) {
	key := name.Render()
	if _, ok := d.bySeq[key]; ok {
		return nil, fmt.Errorf("sequence %s already registered", key)
	}
	s := &Sequence{
		Name:          name,
		PhysicalName:  physical(name, d.naming.PhysicalSequenceName),
		InitialValue:  initialValue,
		IncrementSize: incrementSize,
	}
	d.bySeq[key] = s
	d.sequences = append(d.sequences, s)
	return s, nil
}

// PhysicalColumnName applies the naming strategy to a column name
func (d *Database) PhysicalColumnName(logical string) string {
	return d.naming.PhysicalColumnName(logical)
}

// Tables returns registered tables in registration order
func (d *Database) Tables() []*Table {
	out := make([]*Table, len(d.tables))
	copy(out, d.tables)
	return out
}

// Sequences returns registered sequences in registration order
func (d *Database) Sequences() []*Sequence {
	out := make([]*Sequence, len(d.sequences))
	copy(out, d.sequences)
	return out
}
