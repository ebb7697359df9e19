package dialect

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLite has no row locks; writers are serialized by the database lock instead,
// so a busy or locked database is the lock acquisition failure.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Open(dsn string) gorm.Dialector { return sqlite.Open(dsn) }

func (SQLite) AppendLockHint(table string) string { return table }
func (SQLite) ForUpdateString() string            { return "" }
func (SQLite) SupportsSequences() bool            { return false }

func (SQLite) CreateSequenceSQL(string, int64, int64) string { return "" }
func (SQLite) SequenceNextValueSQL(string) string            { return "" }
func (SQLite) SequenceCurrentValueSQL(string) string         { return "" }
func (SQLite) SequenceExistsSQL() string                     { return "" }

func (SQLite) CreateCounterTableSQL(table string, columns []string, options, _ string) []string {
	return []string{withOptions(fmt.Sprintf("create table %s (%s)", table, columnList(columns, "integer")), options)}
}

func (SQLite) IsLockAcquisitionError(err error) bool {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
}
