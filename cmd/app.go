package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/amirphl/orochi-idgen/bootstrap"
	"github.com/amirphl/orochi-idgen/config"
	"github.com/amirphl/orochi-idgen/dialect"
	"github.com/amirphl/orochi-idgen/generator"
	"github.com/amirphl/orochi-idgen/schema"
	"github.com/amirphl/orochi-idgen/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// application holds the live collaborators of one command run
type application struct {
	cfg      *config.Config
	logger   *log.Logger
	dialect  dialect.Dialect
	db       *gorm.DB
	redis    *redis.Client
	registry *bootstrap.Registry
	closers  []io.Closer
}

type appOptions struct {
	// withoutStore builds the generators without a database; nothing is exported
	withoutStore bool
	skipExport   bool
}

func newApplication(ctx context.Context, opts appOptions) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if mappingFile != "" {
		cfg.Generator.MappingFile = mappingFile
	}

	logger, logCloser := utils.NewLogger(cfg.Logging, "idgen ")
	app := &application{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	if app.dialect, err = dialect.ForName(cfg.Database.Driver); err != nil {
		app.Close()
		return nil, err
	}

	if !opts.withoutStore {
		if app.db, err = initializeDatabase(cfg.Database, cfg.Logging, app.dialect, logger); err != nil {
			app.Close()
			return nil, err
		}
		if app.redis, err = initializeCache(cfg.Cache, logger); err != nil {
			app.Close()
			return nil, err
		}
	}

	mapping, err := bootstrap.LoadMapping(cfg.Generator.MappingFile)
	if err != nil {
		app.Close()
		return nil, err
	}

	buildOpts := bootstrap.Options{
		DB:            app.db,
		Dialect:       app.dialect,
		Naming:        schema.NewGormNaming(cfg.Generator.TablePrefix),
		DefaultSchema: cfg.Database.Schema,
		Defaults:      cfg.GeneratorDefaults(),
		SkipExport:    opts.withoutStore || opts.skipExport || cfg.Generator.SkipSchemaExport,
		Logger:        logger,
	}
	if app.redis != nil {
		buildOpts.Redis = app.redis
	}
	if app.registry, err = bootstrap.Build(ctx, mapping, buildOpts); err != nil {
		app.Close()
		return nil, err
	}

	logger.Printf("%d generators ready on %s", len(app.registry.Entries()), app.dialect.Name())
	return app, nil
}

// Close releases the database, redis and log file in reverse order of opening
func (a *application) Close() {
	if a.redis != nil {
		a.closers = append(a.closers, a.redis)
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close failed: %v\n", err)
		}
	}
	a.closers = nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logging config.LoggingConfig, d dialect.Dialect, logger *log.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(d.Open(cfg.ConnectionString()), &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  utils.GormLogLevel(logging, cfg.SlowQueryLog),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)
	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *log.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

var _ generator.RedisCounter = (*redis.Client)(nil)
