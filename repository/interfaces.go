package repository

import (
	"context"

	"github.com/amirphl/orochi-idgen/models"
	"github.com/amirphl/orochi-idgen/session"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// SchemaRepository inspects and mutates the store for schema export
type SchemaRepository interface {
	session.Conn
	HasTable(ctx context.Context, name string) (bool, error)
	HasSequence(ctx context.Context, name string) (bool, error)
	Ping(ctx context.Context) error
}

// CounterRepository reads counter state for diagnostics without locking it
type CounterRepository interface {
	Peek(ctx context.Context, structure, peekSQL string) (*models.CounterState, error)
}
