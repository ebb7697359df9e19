// Package generator resolves declarative generator configuration into live value generators
package generator

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
	"github.com/redis/go-redis/v9"
)

// EventType is a lifecycle event on which a value may be generated
type EventType uint8

const (
	EventInsert EventType = 1 << iota
	EventUpdate
)

// EventTypeSet is a set of events
type EventTypeSet uint8

const (
	InsertOnly      = EventTypeSet(EventInsert)
	UpdateOnly      = EventTypeSet(EventUpdate)
	InsertAndUpdate = EventTypeSet(EventInsert | EventUpdate)
)

// Contains reports whether e is in the set
func (s EventTypeSet) Contains(e EventType) bool { return uint8(s)&uint8(e) != 0 }

func (s EventTypeSet) String() string {
	var parts []string
	if s.Contains(EventInsert) {
		parts = append(parts, "insert")
	}
	if s.Contains(EventUpdate) {
		parts = append(parts, "update")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseEventTypeSet reads a comma separated list of insert and update
func ParseEventTypeSet(s string) (EventTypeSet, bool) {
	var set EventTypeSet
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "insert":
			set |= InsertOnly
		case "update":
			set |= UpdateOnly
		case "":
		default:
			return 0, false
		}
	}
	return set, set != 0
}

// Generator is implemented by every generator
type Generator interface {
	EventTypes() EventTypeSet
}

// BeforeExecutionGenerator produces the value in process before the statement runs
type BeforeExecutionGenerator interface {
	Generator
	Generate(ctx context.Context, sess session.Session, owner any, current any, event EventType) (any, error)
}

// OnExecutionGenerator lets the store produce the value while the statement runs
type OnExecutionGenerator interface {
	Generator
	// ColumnValue is the SQL written in place of a parameter; empty means the column is omitted
	ColumnValue(d dialect.Dialect) string
}

// IdentifierGenerator is the classic identifier capability configured from resolved parameters
type IdentifierGenerator interface {
	BeforeExecutionGenerator
	Configure(cfg *Configuration, cc CreationContext) error
}

// ExportableProducer contributes schema objects and renders its SQL once they are registered
type ExportableProducer interface {
	RegisterExportables(db *schema.Database) error
	Initialize(sqlCtx schema.SQLContext) error
}

// Member is the property a generator is attached to
type Member struct {
	Entity   string
	Property string
	Table    string
	// Column is empty for composite keys
	Column  string
	Version bool
}

// Key identifies the member as entity.property
func (m Member) Key() string { return m.Entity + "." + m.Property }

// CreationContext carries what generator construction may need
type CreationContext struct {
	Member   Member
	Dialect  dialect.Dialect
	Logger   *log.Logger
	Redis    RedisCounter
	Provider InstanceProvider
}

func (cc CreationContext) logger() *log.Logger {
	if cc.Logger == nil {
		return log.Default()
	}
	return cc.Logger
}

// RedisCounter is the part of a redis client the redis sequence needs
type RedisCounter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
}
