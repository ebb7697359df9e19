package schema

import (
	"strings"

	gormschema "gorm.io/gorm/schema"
)

// QualifiedName is a catalog.schema.object reference; catalog and schema are optional
type QualifiedName struct {
	Catalog string
	Schema  string
	Object  string
}

// ParseQualifiedName splits a dotted name. Extra leading parts beyond three are kept in the catalog.
func ParseQualifiedName(name string) QualifiedName {
	parts := strings.Split(strings.TrimSpace(name), ".")
	switch len(parts) {
	case 1:
		return QualifiedName{Object: parts[0]}
	case 2:
		return QualifiedName{Schema: parts[0], Object: parts[1]}
	default:
		n := len(parts)
		return QualifiedName{
			Catalog: strings.Join(parts[:n-2], "."),
			Schema:  parts[n-2],
			Object:  parts[n-1],
		}
	}
}

// IsZero reports whether the name has no object part
func (q QualifiedName) IsZero() bool { return q.Object == "" }

// Render joins the non-empty parts with dots
func (q QualifiedName) Render() string {
	parts := make([]string, 0, 3)
	if q.Catalog != "" {
		parts = append(parts, q.Catalog)
	}
	if q.Schema != "" {
		parts = append(parts, q.Schema)
	}
	parts = append(parts, q.Object)
	return strings.Join(parts, ".")
}

func (q QualifiedName) String() string { return q.Render() }

// PhysicalNamingStrategy maps logical object names to the names used in the store
type PhysicalNamingStrategy interface {
	PhysicalTableName(logical string) string
	PhysicalSequenceName(logical string) string
	PhysicalColumnName(logical string) string
}

// GormNaming applies gorm's naming rules: snake case, optional prefix, no pluralization
type GormNaming struct {
	strategy gormschema.NamingStrategy
}

// NewGormNaming creates a naming strategy that prefixes tables and sequences with prefix
func NewGormNaming(prefix string) *GormNaming {
	return &GormNaming{strategy: gormschema.NamingStrategy{TablePrefix: prefix, SingularTable: true}}
}

func (n *GormNaming) PhysicalTableName(logical string) string {
	return n.strategy.TableName(logical)
}

func (n *GormNaming) PhysicalSequenceName(logical string) string {
	return n.strategy.TableName(logical)
}

func (n *GormNaming) PhysicalColumnName(logical string) string {
	return n.strategy.ColumnName("", logical)
}

// physical applies strategy to the object part only
func physical(name QualifiedName, convert func(string) string) QualifiedName {
	name.Object = convert(name.Object)
	return name
}
