package dialect

import (
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// MySQL targets MySQL and MariaDB through go-sql-driver/mysql
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Open(dsn string) gorm.Dialector { return mysql.Open(dsn) }

func (MySQL) AppendLockHint(table string) string { return table }
func (MySQL) ForUpdateString() string            { return " for update" }
func (MySQL) SupportsSequences() bool            { return false }

func (MySQL) CreateSequenceSQL(string, int64, int64) string { return "" }
func (MySQL) SequenceNextValueSQL(string) string            { return "" }
func (MySQL) SequenceCurrentValueSQL(string) string         { return "" }
func (MySQL) SequenceExistsSQL() string                     { return "" }

func (MySQL) CreateCounterTableSQL(table string, columns []string, options, comment string) []string {
	ddl := withOptions(fmt.Sprintf("create table %s (%s)", table, columnList(columns, "bigint")), options)
	if comment != "" {
		ddl += " comment=" + quoteLiteral(comment)
	}
	return []string{ddl}
}

func (MySQL) IsLockAcquisitionError(err error) bool {
	var myErr *mysqldriver.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlLockWaitTimeout || myErr.Number == mysqlDeadlock
}
