package dialect

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SQLSTATE codes that mean a lock could not be taken
var postgresLockStates = map[string]bool{
	"55P03": true, // lock_not_available
	"40P01": true, // deadlock_detected
	"40001": true, // serialization_failure
}

// Postgres targets PostgreSQL. DriverName selects the database/sql driver:
// empty uses pgx, "postgres" uses lib/pq.
type Postgres struct {
	DriverName string
}

func (Postgres) Name() string { return "postgres" }

func (d Postgres) Open(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{DriverName: d.DriverName, DSN: dsn})
}

func (Postgres) AppendLockHint(table string) string { return table }
func (Postgres) ForUpdateString() string            { return " for update" }
func (Postgres) SupportsSequences() bool            { return true }

func (Postgres) CreateSequenceSQL(name string, initialValue, incrementSize int64) string {
	return fmt.Sprintf("create sequence %s start with %d increment by %d", name, initialValue, incrementSize)
}

func (Postgres) SequenceNextValueSQL(name string) string {
	return fmt.Sprintf("select nextval(%s)", quoteLiteral(name))
}

func (Postgres) SequenceCurrentValueSQL(name string) string {
	return fmt.Sprintf("select last_value from %s", name)
}

func (Postgres) SequenceExistsSQL() string {
	return "select count(*) from information_schema.sequences where sequence_name = ?"
}

func (Postgres) CreateCounterTableSQL(table string, columns []string, options, comment string) []string {
	stmts := []string{withOptions(fmt.Sprintf("create table %s (%s)", table, columnList(columns, "bigint")), options)}
	if comment != "" {
		stmts = append(stmts, fmt.Sprintf("comment on table %s is %s", table, quoteLiteral(comment)))
	}
	return stmts
}

func (Postgres) IsLockAcquisitionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return postgresLockStates[string(pqErr.Code)]
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgresLockStates[pgErr.Code]
	}
	return false
}
