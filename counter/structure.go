// Package counter implements store-backed counters that hand out raw source values to optimizers
package counter

import (
	"context"
	"log"

	"github.com/amirphl/orochi-idgen/optimizer"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/session"
)

// Kind tells how a structure is stored
type Kind string

const (
	KindTable    Kind = "table"
	KindSequence Kind = "sequence"
)

// DatabaseStructure is a counter resource owned by one generator.
// RegisterExportables runs at schema build time, Initialize before the first BuildCallback.
type DatabaseStructure interface {
	Name() string
	PhysicalName() string
	InitialValue() int64
	IncrementSize() int64
	TimesAccessed() int64
	IsPhysicalSequence() bool

	RegisterExportables(db *schema.Database) error
	Initialize(sqlCtx schema.SQLContext) error
	BuildCallback(sess session.Session) optimizer.AccessCallback

	Snapshot() Snapshot
}

// Snapshot is a read-only diagnostic view of a structure
type Snapshot struct {
	Name          string `json:"name"`
	PhysicalName  string `json:"physical_name"`
	Kind          Kind   `json:"kind"`
	ValueColumn   string `json:"value_column,omitempty"`
	InitialValue  int64  `json:"initial_value"`
	IncrementSize int64  `json:"increment_size"`
	TimesAccessed int64  `json:"times_accessed"`
	SelectSQL     string `json:"select_sql,omitempty"`
	UpdateSQL     string `json:"update_sql,omitempty"`
	// PeekSQL reads the stored value without locking or advancing it
	PeekSQL string `json:"peek_sql,omitempty"`
}

// callback binds a structure's fetch to one session
type callback struct {
	sess  session.Session
	fetch func(ctx context.Context, delegate session.IsolationDelegate) (int64, error)
}

func (c *callback) NextValue(ctx context.Context) (int64, error) {
	return c.fetch(ctx, c.sess.IsolationDelegate())
}

func (c *callback) TenantIdentifier() string {
	return c.sess.TenantIdentifier()
}

func loggerOrDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
