// Package testing provides test utilities and database setup for store backed tests
package testing

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/amirphl/orochi-idgen/dialect"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Transaction locking modes understood by the sqlite driver
const (
	TxLockImmediate = "immediate"
	TxLockDeferred  = "deferred"
)

// TestDB represents a test database instance backed by a temporary sqlite file
type TestDB struct {
	DB      *gorm.DB
	Name    string
	Dialect dialect.Dialect
	dir     string
}

// SetupTestDB creates a fresh database file. Writers take the database lock when their
// transaction begins and wait for each other up to the busy timeout.
func SetupTestDB() (*TestDB, error) {
	dir, err := os.MkdirTemp("", "idgen_test_")
	if err != nil {
		return nil, fmt.Errorf("failed to create test directory: %w", err)
	}
	name := filepath.Join(dir, "idgen.db")

	db, err := Open(name, TxLockImmediate)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &TestDB{
		DB:      db,
		Name:    name,
		Dialect: dialect.SQLite{},
		dir:     dir,
	}, nil
}

// Open opens another handle on a test database file with the given transaction locking mode
func Open(name, txLock string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_txlock=%s", name, txLock)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %s: %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(8)
	return db, nil
}

// TeardownTestDB closes connections and removes the database files
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB != nil {
		if sqlDB, err := tdb.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return os.RemoveAll(tdb.dir)
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
