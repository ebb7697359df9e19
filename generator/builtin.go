package generator

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/session"
	"github.com/google/uuid"
	"github.com/rs/xid"
)

// Assigned accepts the value the caller already set
type Assigned struct{}

func (*Assigned) EventTypes() EventTypeSet { return InsertOnly }

func (*Assigned) Generate(_ context.Context, _ session.Session, owner any, current any, _ EventType) (any, error) {
	if current == nil || reflect.ValueOf(current).IsZero() {
		return nil, fmt.Errorf("%w: %T", ErrValueNotAssigned, owner)
	}
	return current, nil
}

// Identity leaves the value to an identity column
type Identity struct{}

func (*Identity) EventTypes() EventTypeSet { return InsertOnly }

// ColumnValue omits the column so the store assigns it
func (*Identity) ColumnValue(dialect.Dialect) string { return "" }

// UUID generates random (version 4) or time ordered (version 7) UUIDs
type UUID struct {
	timeOrdered bool
}

const (
	UUIDStyleRandom = "random"
	UUIDStyleTime   = "time"
)

func (*UUID) EventTypes() EventTypeSet { return InsertOnly }

func (g *UUID) Configure(cfg *Configuration, _ CreationContext) error {
	return g.setStyle(cfg.String(ParamUUIDStyle, UUIDStyleRandom))
}

func (g *UUID) setStyle(style string) error {
	switch strings.ToLower(style) {
	case "", UUIDStyleRandom, "auto":
		g.timeOrdered = false
	case UUIDStyleTime, "v7":
		g.timeOrdered = true
	default:
		return NewConfigurationErrorf("INVALID_PARAMETER", "unknown uuid style %q", ErrInvalidParameter, style)
	}
	return nil
}

func (g *UUID) Generate(context.Context, session.Session, any, any, EventType) (any, error) {
	if g.timeOrdered {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	}
	return uuid.NewString(), nil
}

// XID generates globally unique, sortable 20 character identifiers
type XID struct{}

func (*XID) EventTypes() EventTypeSet { return InsertOnly }

func (*XID) Generate(context.Context, session.Session, any, any, EventType) (any, error) {
	return xid.New().String(), nil
}
