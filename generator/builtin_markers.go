package generator

import (
	"context"
	"time"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/session"
)

// Built-in marker names
const (
	MarkerCurrentTimestamp = "current-timestamp"
	MarkerTenantID         = "tenant-id"
	MarkerUUID             = "uuid-generator"
	MarkerSequence         = "sequence-generator"
)

// TimestampSource selects where a timestamp is taken
type TimestampSource string

const (
	SourceVM       TimestampSource = "vm"
	SourceDatabase TimestampSource = "db"
)

// CurrentTimestamp marks a property that receives the current time
type CurrentTimestamp struct {
	Events EventTypeSet
	Source TimestampSource
}

func (CurrentTimestamp) MarkerName() string { return MarkerCurrentTimestamp }

// TenantID marks a property that receives the session tenant
type TenantID struct{}

func (TenantID) MarkerName() string { return MarkerTenantID }

// UUIDMarker marks an identifier generated as a UUID
type UUIDMarker struct {
	Style string
}

func (UUIDMarker) MarkerName() string { return MarkerUUID }

// SequenceMarker marks an identifier generated from a sequence style counter
type SequenceMarker struct {
	Name          string
	InitialValue  int64
	IncrementSize int64
	Optimizer     string
	ForceTable    bool
}

func (SequenceMarker) MarkerName() string { return MarkerSequence }

func registerBuiltinMarkers(r *MarkerRegistry) {
	r.Register(MarkerCurrentTimestamp, MarkerFactory{
		Family: FamilyValueGenerator,
		WithMarker: func(m Marker) (Generator, error) {
			ts := m.(CurrentTimestamp)
			events := ts.Events
			if events == 0 {
				events = InsertAndUpdate
			}
			if ts.Source == SourceDatabase {
				return &currentTimestampInStore{events: events}, nil
			}
			return &currentTimestamp{events: events}, nil
		},
	})
	r.Register(MarkerTenantID, MarkerFactory{
		Family: FamilyValueGenerator,
		NoArg:  func() (Generator, error) { return &tenantID{}, nil },
	})
	r.Register(MarkerUUID, MarkerFactory{
		Family: FamilyIDGenerator,
		WithMarker: func(m Marker) (Generator, error) {
			g := &UUID{}
			if err := g.setStyle(m.(UUIDMarker).Style); err != nil {
				return nil, err
			}
			return g, nil
		},
	})
	r.Register(MarkerSequence, MarkerFactory{
		Family: FamilyIDGenerator,
		WithContext: func(m Marker, member Member, cc CreationContext) (Generator, error) {
			sm := m.(SequenceMarker)
			cfg := newConfiguration(StrategySequence)
			cfg.OwnerTable, cfg.OwnerColumn = member.Table, member.Column
			cfg.Parameters[ParamTargetTable] = member.Table
			if sm.Name != "" {
				cfg.GeneratorName = sm.Name
				cfg.Parameters[ParamGeneratorName] = sm.Name
			}
			if sm.InitialValue != 0 {
				cfg.Parameters[ParamInitialValue] = sm.InitialValue
			}
			if sm.IncrementSize != 0 {
				cfg.Parameters[ParamIncrementSize] = sm.IncrementSize
			}
			if sm.Optimizer != "" {
				cfg.Parameters[ParamOptimizer] = sm.Optimizer
			}
			g := &SequenceStyle{forceTable: sm.ForceTable}
			if err := g.Configure(cfg, cc); err != nil {
				return nil, err
			}
			return g, nil
		},
	})
}

type currentTimestamp struct {
	events EventTypeSet
}

func (g *currentTimestamp) EventTypes() EventTypeSet { return g.events }

func (g *currentTimestamp) Generate(context.Context, session.Session, any, any, EventType) (any, error) {
	return time.Now().UTC(), nil
}

type currentTimestampInStore struct {
	events EventTypeSet
}

func (g *currentTimestampInStore) EventTypes() EventTypeSet { return g.events }

func (g *currentTimestampInStore) ColumnValue(dialect.Dialect) string { return "current_timestamp" }

type tenantID struct{}

func (*tenantID) EventTypes() EventTypeSet { return InsertOnly }

func (*tenantID) Generate(_ context.Context, sess session.Session, _ any, _ any, _ EventType) (any, error) {
	return sess.TenantIdentifier(), nil
}
