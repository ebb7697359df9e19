package counter

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/optimizer"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
)

// SequenceConfig describes a native sequence
type SequenceConfig struct {
	Name          schema.QualifiedName
	InitialValue  int64
	IncrementSize int64
	Logger        *log.Logger
}

// SequenceStructure hands out values from a native store sequence
type SequenceStructure struct {
	logicalName   schema.QualifiedName
	initialValue  int64
	incrementSize int64
	logger        *log.Logger

	physicalName schema.QualifiedName
	registered   bool

	dialect      dialect.Dialect
	physicalText string
	nextQuery    string
	peekQuery    string
	initialized  atomic.Bool

	accessCount atomic.Int64
}

// NewSequenceStructure creates an unregistered sequence structure
func NewSequenceStructure(cfg SequenceConfig) *SequenceStructure {
	if cfg.IncrementSize == 0 {
		cfg.IncrementSize = 1
	}
	return &SequenceStructure{
		logicalName:   cfg.Name,
		initialValue:  cfg.InitialValue,
		incrementSize: cfg.IncrementSize,
		logger:        loggerOrDefault(cfg.Logger),
	}
}

func (s *SequenceStructure) Name() string             { return s.logicalName.Render() }
func (s *SequenceStructure) InitialValue() int64      { return s.initialValue }
func (s *SequenceStructure) IncrementSize() int64     { return s.incrementSize }
func (s *SequenceStructure) TimesAccessed() int64     { return s.accessCount.Load() }
func (s *SequenceStructure) IsPhysicalSequence() bool { return true }

func (s *SequenceStructure) PhysicalName() string {
	if !s.registered {
		return ""
	}
	return s.physicalName.Render()
}

// NextValueSQL returns the statement that advances the sequence; empty before Initialize
func (s *SequenceStructure) NextValueSQL() string { return s.nextQuery }

func (s *SequenceStructure) RegisterExportables(db *schema.Database) error {
	seq := db.LocateSequence(s.logicalName)
	if seq == nil {
		var err error
		if seq, err = db.CreateSequence(s.logicalName, s.initialValue, s.incrementSize); err != nil {
			return err
		}
	} else if seq.IncrementSize != s.incrementSize {
		return fmt.Errorf("sequence %s is registered with increment %d, not %d",
			s.logicalName.Render(), seq.IncrementSize, s.incrementSize)
	}
	s.physicalName = seq.PhysicalName
	s.registered = true
	return nil
}

func (s *SequenceStructure) Initialize(sqlCtx schema.SQLContext) error {
	if !s.registered {
		return ErrNotRegistered
	}
	if s.initialized.Load() {
		return nil
	}
	d := sqlCtx.Dialect
	if !d.SupportsSequences() {
		return fmt.Errorf("dialect %s does not support sequences", d.Name())
	}
	s.dialect = d
	s.physicalText = sqlCtx.Format(s.physicalName)
	s.nextQuery = d.SequenceNextValueSQL(s.physicalText)
	s.peekQuery = d.SequenceCurrentValueSQL(s.physicalText)
	s.initialized.Store(true)
	return nil
}

func (s *SequenceStructure) BuildCallback(sess session.Session) optimizer.AccessCallback {
	return &callback{sess: sess, fetch: s.next}
}

func (s *SequenceStructure) Snapshot() Snapshot {
	return Snapshot{
		Name:          s.Name(),
		PhysicalName:  s.PhysicalName(),
		Kind:          KindSequence,
		InitialValue:  s.initialValue,
		IncrementSize: s.incrementSize,
		TimesAccessed: s.TimesAccessed(),
		SelectSQL:     s.nextQuery,
		PeekSQL:       s.peekQuery,
	}
}

// next runs outside a transaction since sequence advances are never rolled back
func (s *SequenceStructure) next(ctx context.Context, delegate session.IsolationDelegate) (int64, error) {
	if !s.initialized.Load() {
		return 0, ErrNotInitialized
	}

	start := time.Now()
	var value int64
	err := delegate.DelegateWork(ctx, func(ctx context.Context, conn session.Conn) error {
		v, found, err := conn.QueryInt64(ctx, s.nextQuery)
		if err != nil {
			s.logger.Printf("counter: could not execute %q on %s: %v", s.nextQuery, s.physicalText, err)
			if s.dialect.IsLockAcquisitionError(err) {
				return &LockAcquisitionError{SQL: s.nextQuery, Err: err}
			}
			return &StatementExecutionError{SQL: s.nextQuery, Err: err}
		}
		if !found {
			return &StatementExecutionError{SQL: s.nextQuery, Err: fmt.Errorf("sequence %s returned no value", s.physicalText)}
		}
		value = v
		return nil
	}, false)
	roundDuration.WithLabelValues(s.physicalText).Observe(time.Since(start).Seconds())
	if err != nil {
		roundsTotal.WithLabelValues(s.physicalText, "error").Inc()
		return 0, err
	}

	s.accessCount.Add(1)
	roundsTotal.WithLabelValues(s.physicalText, "success").Inc()
	return value, nil
}
