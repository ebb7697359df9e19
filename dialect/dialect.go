// Package dialect renders store-specific SQL for counter structures and classifies store errors
package dialect

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect describes the SQL flavour of a backing store
type Dialect interface {
	Name() string
	// Open returns the gorm dialector for a DSN
	Open(dsn string) gorm.Dialector

	// AppendLockHint decorates a table reference for a pessimistic write lock
	AppendLockHint(table string) string
	// ForUpdateString is appended to a select to lock the rows it reads
	ForUpdateString() string

	SupportsSequences() bool
	CreateSequenceSQL(name string, initialValue, incrementSize int64) string
	SequenceNextValueSQL(name string) string
	// SequenceCurrentValueSQL reads a sequence without advancing it
	SequenceCurrentValueSQL(name string) string
	// SequenceExistsSQL takes the unqualified sequence name as its only argument
	SequenceExistsSQL() string

	// CreateCounterTableSQL renders the DDL for a counter table whose columns all hold integral values
	CreateCounterTableSQL(table string, columns []string, options, comment string) []string

	// IsLockAcquisitionError reports whether err means the row lock could not be obtained
	IsLockAcquisitionError(err error) bool
}

// ForName returns the dialect registered under name
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "pgx":
		return Postgres{DriverName: ""}, nil
	case "pq":
		return Postgres{DriverName: "postgres"}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func columnList(columns []string, sqlType string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = c + " " + sqlType
	}
	return strings.Join(defs, ", ")
}

func withOptions(ddl, options string) string {
	if options = strings.TrimSpace(options); options != "" {
		return ddl + " " + options
	}
	return ddl
}
