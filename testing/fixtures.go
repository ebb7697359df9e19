package testing

import (
	"context"
	"fmt"

	"github.com/amirphl/orochi-idgen/counter"
	"github.com/amirphl/orochi-idgen/repository"
	"github.com/amirphl/orochi-idgen/schema"
)

// TestFixtures provides helper methods for creating counter structures in a test database
type TestFixtures struct {
	DB       *TestDB
	Database *schema.Database
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db, Database: schema.NewDatabase(nil)}
}

// SQLContext returns the rendering context of the test database
func (tf *TestFixtures) SQLContext() schema.SQLContext {
	return schema.SQLContext{Dialect: tf.DB.Dialect}
}

// Session returns a session over the test database
func (tf *TestFixtures) Session(tenant string) *repository.GormSession {
	return repository.NewSession(tf.DB.DB, tenant)
}

// CounterTable registers, exports and initializes a counter table
func (tf *TestFixtures) CounterTable(ctx context.Context, cfg counter.TableConfig) (*counter.TableStructure, error) {
	s := counter.NewTableStructure(cfg)
	if err := s.RegisterExportables(tf.Database); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", cfg.Name.Render(), err)
	}
	if err := tf.Export(ctx); err != nil {
		return nil, err
	}
	if err := s.Initialize(tf.SQLContext()); err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", cfg.Name.Render(), err)
	}
	return s, nil
}

// Export creates every registered object that does not exist yet
func (tf *TestFixtures) Export(ctx context.Context) error {
	store := repository.NewSchemaRepository(tf.DB.DB, tf.DB.Dialect)
	if _, err := schema.NewExporter(tf.SQLContext(), store, nil).Export(ctx, tf.Database); err != nil {
		return fmt.Errorf("failed to export schema: %w", err)
	}
	return nil
}

// StoredValue reads a single-row counter table directly
func (tf *TestFixtures) StoredValue(table, column string) (int64, error) {
	var v int64
	err := tf.DB.DB.Raw(fmt.Sprintf("select %s from %s", column, table)).Scan(&v).Error
	return v, err
}
