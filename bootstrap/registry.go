package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/amirphl/orochi-idgen/counter"
	"github.com/amirphl/orochi-idgen/expectation"
	"github.com/amirphl/orochi-idgen/generator"
	"github.com/amirphl/orochi-idgen/models"
	"github.com/amirphl/orochi-idgen/repository"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
	"gorm.io/gorm"
)

var (
	ErrUnknownGenerator = errors.New("no generator is mapped under this key")
	// ErrGeneratedByStore is returned for generators whose value only exists once the row is written
	ErrGeneratedByStore = errors.New("value is generated by the store during the insert")
	// ErrNoStore is returned for counter-backed generators of a registry built without a database
	ErrNoStore = errors.New("registry has no database")
)

// Entry is one live generator
type Entry struct {
	Key       string                 `json:"key"`
	Member    generator.Member       `json:"-"`
	Strategy  string                 `json:"strategy"`
	Family    generator.MarkerFamily `json:"-"`
	Generator generator.Generator    `json:"-"`
}

// Events lists the events the generator runs on
func (e *Entry) Events() generator.EventTypeSet { return e.Generator.EventTypes() }

// Structure returns the counter behind the generator, if it has one
func (e *Entry) Structure() (counter.DatabaseStructure, bool) {
	s, ok := e.Generator.(interface {
		Structure() counter.DatabaseStructure
	})
	if !ok || s.Structure() == nil {
		return nil, false
	}
	return s.Structure(), true
}

// StructureStatus is the diagnostic view of a counter together with its stored value
type StructureStatus struct {
	Generator string               `json:"generator"`
	Snapshot  counter.Snapshot     `json:"structure"`
	State     *models.CounterState `json:"state,omitempty"`
}

// Registry holds the live generators keyed by entity.property
type Registry struct {
	entries  map[string]*Entry
	db       *gorm.DB
	counters repository.CounterRepository
	database *schema.Database
	sqlCtx   schema.SQLContext
	logger   *log.Logger
}

func newRegistry(opts Options, logger *log.Logger) *Registry {
	r := &Registry{
		entries:  make(map[string]*Entry),
		db:       opts.DB,
		database: schema.NewDatabase(opts.Naming),
		sqlCtx: schema.SQLContext{
			Dialect:        opts.Dialect,
			DefaultCatalog: opts.DefaultCatalog,
			DefaultSchema:  opts.DefaultSchema,
		},
		logger: logger,
	}
	if opts.DB != nil {
		r.counters = repository.NewCounterRepository(opts.DB)
	}
	return r
}

func (r *Registry) add(e *Entry) error {
	if _, ok := r.entries[e.Key]; ok {
		return generator.NewConfigurationErrorf("DUPLICATE_PROPERTY", "property %s is mapped twice", generator.ErrInvalidDefinition, e.Key)
	}
	r.entries[e.Key] = e
	return nil
}

func (r *Registry) ordered() []*Entry {
	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Entries returns the generators sorted by key
func (r *Registry) Entries() []*Entry { return r.ordered() }

// Lookup returns the generator mapped under key
func (r *Registry) Lookup(key string) (*Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Session opens a session over the registry's database. Without one, delegated work fails with repository.ErrNoDatabase.
func (r *Registry) Session(tenant string) session.Session {
	return repository.NewSession(r.db, tenant)
}

// Generate produces the next value of the generator mapped under key
func (r *Registry) Generate(ctx context.Context, key string, sess session.Session) (any, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGenerator, key)
	}
	gen, ok := e.Generator.(generator.BeforeExecutionGenerator)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGeneratedByStore, key)
	}
	if _, ok := e.Structure(); ok && r.db == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStore, key)
	}

	v, err := gen.Generate(ctx, sess, nil, nil, generator.EventInsert)
	if err != nil {
		generationFailuresTotal.WithLabelValues(key, failureReason(err)).Inc()
		r.logger.Printf("bootstrap: generation failed for %s: %v", key, err)
		return nil, err
	}
	generatedValuesTotal.WithLabelValues(key, e.Strategy).Inc()
	return v, nil
}

// GenerateN produces n values in order
func (r *Registry) GenerateN(ctx context.Context, key string, sess session.Session, n int) ([]any, error) {
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.Generate(ctx, key, sess)
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func failureReason(err error) string {
	switch {
	case counter.IsMissingSeedRow(err):
		return "missing_seed_row"
	case counter.IsLockAcquisition(err):
		return "lock_acquisition"
	case expectation.IsStaleState(err), expectation.IsTooManyRows(err), expectation.IsBatchFailed(err):
		return "expectation"
	case counter.IsStatementExecution(err):
		return "statement"
	case generator.IsValueNotAssigned(err):
		return "not_assigned"
	default:
		return "other"
	}
}

// Structures reports every counter with its stored value
func (r *Registry) Structures(ctx context.Context) ([]StructureStatus, error) {
	var out []StructureStatus
	for _, e := range r.ordered() {
		s, ok := e.Structure()
		if !ok {
			continue
		}
		status := StructureStatus{Generator: e.Key, Snapshot: s.Snapshot()}
		if r.counters != nil {
			state, err := r.counters.Peek(ctx, status.Snapshot.PhysicalName, status.Snapshot.PeekSQL)
			if err != nil {
				return nil, err
			}
			status.State = state
		}
		out = append(out, status)
	}
	return out, nil
}

// Script renders the DDL of every store object the generators need
func (r *Registry) Script() []string {
	return schema.NewExporter(r.sqlCtx, nil, r.logger).Script(r.database)
}

// Database returns the registered store objects
func (r *Registry) Database() *schema.Database { return r.database }
