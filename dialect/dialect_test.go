package dialect

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres", "postgres"},
		{"PostgreSQL", "postgres"},
		{"pq", "postgres"},
		{"mysql", "mysql"},
		{"sqlite3", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ForName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Name())
		})
	}

	_, err := ForName("oracle")
	assert.Error(t, err)
}

func TestPostgresSQL(t *testing.T) {
	d := Postgres{}
	assert.Equal(t, "id_blocks", d.AppendLockHint("id_blocks"))
	assert.Equal(t, " for update", d.ForUpdateString())
	assert.Equal(t, "select nextval('order_seq')", d.SequenceNextValueSQL("order_seq"))
	assert.Equal(t, "create sequence order_seq start with 1 increment by 50", d.CreateSequenceSQL("order_seq", 1, 50))

	ddl := d.CreateCounterTableSQL("ids", []string{"next_val"}, "tablespace fast", "it's a counter")
	require.Len(t, ddl, 2)
	assert.Equal(t, "create table ids (next_val bigint) tablespace fast", ddl[0])
	assert.Equal(t, "comment on table ids is 'it''s a counter'", ddl[1])
}

func TestMySQLSQL(t *testing.T) {
	d := MySQL{}
	assert.False(t, d.SupportsSequences())
	ddl := d.CreateCounterTableSQL("ids", []string{"next_val"}, "engine=InnoDB", "counter")
	assert.Equal(t, []string{"create table ids (next_val bigint) engine=InnoDB comment='counter'"}, ddl)
}

func TestSQLiteSQL(t *testing.T) {
	d := SQLite{}
	assert.Equal(t, "", d.ForUpdateString())
	assert.Equal(t, []string{"create table ids (next_val integer)"}, d.CreateCounterTableSQL("ids", []string{"next_val"}, "", "ignored"))
}

func TestIsLockAcquisitionError(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		err     error
		want    bool
	}{
		{"pq lock not available", Postgres{}, &pq.Error{Code: "55P03"}, true},
		{"pq deadlock wrapped", Postgres{}, fmt.Errorf("select: %w", &pq.Error{Code: "40P01"}), true},
		{"pq unique violation", Postgres{}, &pq.Error{Code: "23505"}, false},
		{"pgx serialization failure", Postgres{}, &pgconn.PgError{Code: "40001"}, true},
		{"mysql lock wait", MySQL{}, &mysqldriver.MySQLError{Number: 1205}, true},
		{"mysql syntax", MySQL{}, &mysqldriver.MySQLError{Number: 1064}, false},
		{"sqlite busy", SQLite{}, sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"sqlite constraint", SQLite{}, sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"plain error", SQLite{}, errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.IsLockAcquisitionError(tt.err))
		})
	}
}
