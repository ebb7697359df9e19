package counter

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/expectation"
	"github.com/amirphl/orochi-idgen/optimizer"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
)

// TableConfig describes a single-row counter table
type TableConfig struct {
	Name          schema.QualifiedName
	ValueColumn   string
	InitialValue  int64
	IncrementSize int64
	Options       string
	Comment       string
	Logger        *log.Logger
}

// TableStructure emulates a sequence with one row in one table.
// Each fetch locks the row, reads it and advances it with a conditional update on a
// transaction isolated from the caller, retrying whenever the update matches no row.
type TableStructure struct {
	logicalName   schema.QualifiedName
	valueColumn   string
	initialValue  int64
	incrementSize int64
	options       string
	comment       string
	logger        *log.Logger

	physicalName   schema.QualifiedName
	physicalColumn string
	registered     bool

	// set once by Initialize
	dialect      dialect.Dialect
	physicalText string
	selectQuery  string
	updateQuery  string
	peekQuery    string
	updateCheck  expectation.Expectation
	initialized  atomic.Bool

	accessCount atomic.Int64
}

// NewTableStructure creates an unregistered table structure. IncrementSize is the amount written
// back per fetch, which is one unless the optimizer applies increments to source values.
func NewTableStructure(cfg TableConfig) *TableStructure {
	if cfg.IncrementSize == 0 {
		cfg.IncrementSize = 1
	}
	return &TableStructure{
		logicalName:   cfg.Name,
		valueColumn:   cfg.ValueColumn,
		initialValue:  cfg.InitialValue,
		incrementSize: cfg.IncrementSize,
		options:       cfg.Options,
		comment:       cfg.Comment,
		logger:        loggerOrDefault(cfg.Logger),
		updateCheck:   &expectation.RowCount{Expected: 1, Logger: cfg.Logger},
	}
}

func (s *TableStructure) Name() string             { return s.logicalName.Render() }
func (s *TableStructure) InitialValue() int64      { return s.initialValue }
func (s *TableStructure) IncrementSize() int64     { return s.incrementSize }
func (s *TableStructure) TimesAccessed() int64     { return s.accessCount.Load() }
func (s *TableStructure) IsPhysicalSequence() bool { return false }

// PhysicalName is empty until the structure is registered
func (s *TableStructure) PhysicalName() string {
	if !s.registered {
		return ""
	}
	return s.physicalName.Render()
}

// SelectSQL returns the locking read; empty before Initialize
func (s *TableStructure) SelectSQL() string { return s.selectQuery }

// UpdateSQL returns the conditional write; empty before Initialize
func (s *TableStructure) UpdateSQL() string { return s.updateQuery }

// RegisterExportables locates or creates the counter table. The column and the seed row
// are only added when this call created the table.
func (s *TableStructure) RegisterExportables(db *schema.Database) error {
	table := db.LocateTable(s.logicalName)
	if table == nil {
		var err error
		if table, err = db.CreateTable(s.logicalName); err != nil {
			return err
		}
		s.physicalColumn = table.AddColumn(s.valueColumn)
		table.Options = s.options
		table.Comment = s.comment

		initial := s.initialValue
		table.AddInitCommand(schema.InitCommand{
			Render: func(ctx schema.SQLContext) string {
				return fmt.Sprintf("insert into %s values ( %d )", ctx.Format(table.PhysicalName), initial)
			},
			Expectation: expectation.NewRowCount(1),
		})
	} else {
		s.physicalColumn = db.PhysicalColumnName(s.valueColumn)
	}
	s.physicalName = table.PhysicalName
	s.registered = true
	return nil
}

// Initialize renders the protocol statements once
func (s *TableStructure) Initialize(sqlCtx schema.SQLContext) error {
	if !s.registered {
		return ErrNotRegistered
	}
	if s.initialized.Load() {
		return nil
	}
	d := sqlCtx.Dialect
	s.dialect = d
	s.physicalText = sqlCtx.Format(s.physicalName)
	s.selectQuery = fmt.Sprintf("select %s as id_val from %s%s",
		s.physicalColumn, d.AppendLockHint(s.physicalText), d.ForUpdateString())
	s.updateQuery = fmt.Sprintf("update %s set %s = ? where %s = ?",
		s.physicalText, s.physicalColumn, s.physicalColumn)
	s.peekQuery = fmt.Sprintf("select %s from %s", s.physicalColumn, s.physicalText)
	s.initialized.Store(true)
	return nil
}

// BuildCallback binds the counter to a session
func (s *TableStructure) BuildCallback(sess session.Session) optimizer.AccessCallback {
	return &callback{sess: sess, fetch: s.next}
}

func (s *TableStructure) Snapshot() Snapshot {
	return Snapshot{
		Name:          s.Name(),
		PhysicalName:  s.PhysicalName(),
		Kind:          KindTable,
		ValueColumn:   s.physicalColumn,
		InitialValue:  s.initialValue,
		IncrementSize: s.incrementSize,
		TimesAccessed: s.TimesAccessed(),
		SelectSQL:     s.selectQuery,
		UpdateSQL:     s.updateQuery,
		PeekSQL:       s.peekQuery,
	}
}

func (s *TableStructure) next(ctx context.Context, delegate session.IsolationDelegate) (int64, error) {
	if !s.initialized.Load() {
		return 0, ErrNotInitialized
	}

	start := time.Now()
	var value int64
	err := delegate.DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
		for {
			current, err := s.read(ctx, conn)
			if err != nil {
				return err
			}

			rows, err := conn.Exec(ctx, s.updateQuery, current+s.incrementSize, current)
			if err != nil {
				return s.failure(s.updateQuery, err)
			}
			if rows == 0 {
				// another caller advanced the row after our read
				casConflictsTotal.WithLabelValues(s.physicalText).Inc()
				continue
			}
			if err := s.updateCheck.VerifyOutcome(rows, expectation.SQLText(s.updateQuery), expectation.NotBatched); err != nil {
				return err
			}
			value = current
			return nil
		}
	}, true)
	roundDuration.WithLabelValues(s.physicalText).Observe(time.Since(start).Seconds())
	if err != nil {
		roundsTotal.WithLabelValues(s.physicalText, "error").Inc()
		return 0, err
	}

	s.accessCount.Add(1)
	roundsTotal.WithLabelValues(s.physicalText, "success").Inc()
	return value, nil
}

func (s *TableStructure) read(ctx context.Context, conn session.Conn) (int64, error) {
	v, found, err := conn.QueryInt64(ctx, s.selectQuery)
	if err != nil {
		return 0, s.failure(s.selectQuery, err)
	}
	if !found {
		err := &MissingSeedRowError{Table: s.physicalText, SQL: s.selectQuery}
		s.logger.Printf("counter: %v", err)
		return 0, err
	}
	return v, nil
}

func (s *TableStructure) failure(sql string, err error) error {
	s.logger.Printf("counter: could not execute %q on %s: %v", sql, s.physicalText, err)
	if s.dialect.IsLockAcquisitionError(err) {
		return &LockAcquisitionError{SQL: sql, Err: err}
	}
	return &StatementExecutionError{SQL: sql, Err: err}
}
