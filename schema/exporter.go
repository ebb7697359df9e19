package schema

import (
	"context"
	"fmt"
	"log"

	"github.com/amirphl/orochi-idgen/expectation"
	"github.com/amirphl/orochi-idgen/session"
)

// Store is the part of the backing store the exporter needs
type Store interface {
	session.Conn
	HasTable(ctx context.Context, name string) (bool, error)
	HasSequence(ctx context.Context, name string) (bool, error)
}

// ExportReport lists what an export created and what it found already present
type ExportReport struct {
	Created []string
	// Seeded lists existing tables that were missing their seed rows
	Seeded  []string
	Skipped []string
}

// Exporter applies a Database model to a store
type Exporter struct {
	sqlCtx SQLContext
	store  Store
	logger *log.Logger
}

// NewExporter creates an exporter
func NewExporter(sqlCtx SQLContext, store Store, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Default()
	}
	return &Exporter{sqlCtx: sqlCtx, store: store, logger: logger}
}

// Script renders every statement needed to create db from scratch
func (e *Exporter) Script(db *Database) []string {
	var out []string
	for _, s := range db.Sequences() {
		if stmt := e.sequenceDDL(s); stmt != "" {
			out = append(out, stmt)
		}
	}
	for _, t := range db.Tables() {
		out = append(out, e.tableDDL(t)...)
		for _, cmd := range t.InitCommands {
			out = append(out, cmd.Render(e.sqlCtx))
		}
	}
	return out
}

// Export creates the sequences and tables of db that do not exist yet.
// Init commands run for tables created by this call and for existing tables that hold no rows.
func (e *Exporter) Export(ctx context.Context, db *Database) (*ExportReport, error) {
	report := &ExportReport{}

	for _, s := range db.Sequences() {
		name := e.sqlCtx.Format(s.PhysicalName)
		if !e.sqlCtx.Dialect.SupportsSequences() {
			return nil, fmt.Errorf("dialect %s does not support sequence %s", e.sqlCtx.Dialect.Name(), name)
		}
		exists, err := e.store.HasSequence(ctx, s.PhysicalName.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to check sequence %s: %w", name, err)
		}
		if exists {
			report.Skipped = append(report.Skipped, name)
			continue
		}
		if _, err := session.Execute(ctx, e.store, session.Command{Text: e.sequenceDDL(s)}, nil, expectation.NotBatched); err != nil {
			return nil, fmt.Errorf("failed to create sequence %s: %w", name, err)
		}
		e.logger.Printf("schema: created sequence %s", name)
		report.Created = append(report.Created, name)
	}

	for _, t := range db.Tables() {
		name := e.sqlCtx.Format(t.PhysicalName)
		exists, err := e.store.HasTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", name, err)
		}
		if exists {
			// a table created by an export that died before its init commands ran
			seeded, err := e.seedIfEmpty(ctx, t, name)
			if err != nil {
				return nil, err
			}
			if seeded {
				e.logger.Printf("schema: seeded existing table %s", name)
				report.Seeded = append(report.Seeded, name)
			} else {
				report.Skipped = append(report.Skipped, name)
			}
			continue
		}
		for _, stmt := range e.tableDDL(t) {
			if _, err := session.Execute(ctx, e.store, session.Command{Text: stmt}, nil, expectation.NotBatched); err != nil {
				return nil, fmt.Errorf("failed to create table %s: %w", name, err)
			}
		}
		if err := e.runInitCommands(ctx, t, name); err != nil {
			return nil, err
		}
		e.logger.Printf("schema: created table %s", name)
		report.Created = append(report.Created, name)
	}

	return report, nil
}

func (e *Exporter) seedIfEmpty(ctx context.Context, t *Table, name string) (bool, error) {
	if len(t.InitCommands) == 0 {
		return false, nil
	}
	rows, _, err := e.store.QueryInt64(ctx, "select count(*) from "+name)
	if err != nil {
		return false, fmt.Errorf("failed to count rows of %s: %w", name, err)
	}
	if rows > 0 {
		return false, nil
	}
	return true, e.runInitCommands(ctx, t, name)
}

func (e *Exporter) runInitCommands(ctx context.Context, t *Table, name string) error {
	for i, cmd := range t.InitCommands {
		stmt := session.Command{Text: cmd.Render(e.sqlCtx)}
		if _, err := session.Execute(ctx, e.store, stmt, cmd.Expectation, i); err != nil {
			return fmt.Errorf("failed to initialize table %s: %w", name, err)
		}
	}
	return nil
}

func (e *Exporter) sequenceDDL(s *Sequence) string {
	return e.sqlCtx.Dialect.CreateSequenceSQL(e.sqlCtx.Format(s.PhysicalName), s.InitialValue, s.IncrementSize)
}

func (e *Exporter) tableDDL(t *Table) []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return e.sqlCtx.Dialect.CreateCounterTableSQL(e.sqlCtx.Format(t.PhysicalName), names, t.Options, t.Comment)
}
