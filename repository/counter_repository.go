package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/orochi-idgen/models"
	"github.com/amirphl/orochi-idgen/utils"
	"gorm.io/gorm"
)

// CounterRepositoryImpl implements CounterRepository
type CounterRepositoryImpl struct {
	db *gorm.DB
}

// NewCounterRepository creates a counter repository
func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &CounterRepositoryImpl{db: db}
}

// Peek reads the stored value of a counter. A structure without a peek statement reports Found false.
func (r *CounterRepositoryImpl) Peek(ctx context.Context, structure, peekSQL string) (*models.CounterState, error) {
	state := &models.CounterState{Structure: structure, ReadAt: utils.UTCNow()}
	if peekSQL == "" {
		return state, nil
	}

	conn := &gormConn{db: getDB(ctx, r.db)}
	v, found, err := conn.QueryInt64(ctx, peekSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter %s: %w", structure, err)
	}
	state.Value = v
	state.Found = found
	return state, nil
}
