package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/orochi-idgen/dialect"
	"gorm.io/gorm"
)

// SchemaRepositoryImpl implements SchemaRepository with gorm's migrator
type SchemaRepositoryImpl struct {
	gormConn
	dialect dialect.Dialect
}

// NewSchemaRepository creates a schema repository
func NewSchemaRepository(db *gorm.DB, d dialect.Dialect) SchemaRepository {
	return &SchemaRepositoryImpl{gormConn: gormConn{db: db}, dialect: d}
}

func (r *SchemaRepositoryImpl) HasTable(ctx context.Context, name string) (bool, error) {
	return getDB(ctx, r.db).Migrator().HasTable(name), nil
}

func (r *SchemaRepositoryImpl) HasSequence(ctx context.Context, name string) (bool, error) {
	if !r.dialect.SupportsSequences() {
		return false, nil
	}
	var count int64
	if err := getDB(ctx, r.db).Raw(r.dialect.SequenceExistsSQL(), name).Scan(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up sequence %s: %w", name, err)
	}
	return count > 0, nil
}

func (r *SchemaRepositoryImpl) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
