// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration of the generator service
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Generator GeneratorConfig `json:"generator"`
	Server    ServerConfig    `json:"server"`
	JWT       JWTConfig       `json:"jwt"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Cache     CacheConfig     `json:"cache"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver"` // postgres, pq, mysql, sqlite
	DSN             string        `json:"-"`      // overrides the fields below
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"-"`
	SSLMode         string        `json:"ssl_mode"`
	Schema          string        `json:"schema"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	// BusyTimeout is how long a sqlite writer waits for the database lock
	BusyTimeout     time.Duration `json:"busy_timeout"`
}

type GeneratorConfig struct {
	MappingFile      string `json:"mapping_file"`
	TablePrefix      string `json:"table_prefix"`
	DefaultSequence  string `json:"default_sequence"`
	ValueColumn      string `json:"value_column"`
	InitialValue     int64  `json:"initial_value"`
	IncrementSize    int64  `json:"increment_size"`
	PreferredPooled  string `json:"preferred_pooled"` // pooled, pooled-lo
	SkipSchemaExport bool   `json:"skip_schema_export"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	MaxBatch        int           `json:"max_batch"`
}

type JWTConfig struct {
	SecretKey      string        `json:"-"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool   `json:"enabled"`
	RedisURL    string `json:"redis_url"`
	RedisDB     int    `json:"redis_db"`
	RedisPrefix string `json:"redis_prefix"`
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          getEnvString("DB_DRIVER", "postgres"),
			DSN:             getEnvString("DB_DSN", ""),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			Schema:          getEnvString("DB_SCHEMA", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 200*time.Millisecond),
			BusyTimeout:     getEnvDuration("DB_BUSY_TIMEOUT", 10*time.Second),
		},
		Generator: GeneratorConfig{
			MappingFile:      getEnvString("IDGEN_MAPPING_FILE", "mapping.yaml"),
			TablePrefix:      getEnvString("IDGEN_TABLE_PREFIX", ""),
			DefaultSequence:  getEnvString("IDGEN_DEFAULT_SEQUENCE", "id_sequence"),
			ValueColumn:      getEnvString("IDGEN_VALUE_COLUMN", "next_val"),
			InitialValue:     getEnvInt64("IDGEN_INITIAL_VALUE", 1),
			IncrementSize:    getEnvInt64("IDGEN_INCREMENT_SIZE", 1),
			PreferredPooled:  getEnvString("IDGEN_PREFERRED_POOLED", "pooled"),
			SkipSchemaExport: getEnvBool("IDGEN_SKIP_SCHEMA_EXPORT", false),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024),
			MaxBatch:        getEnvInt("SERVER_MAX_BATCH", 1000),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "orochi-idgen"),
			Audience:       getEnvString("JWT_AUDIENCE", "orochi-idgen-api"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/orochi-idgen/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "idgen:"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnectionString renders the DSN of the configured driver
func (c DatabaseConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.Driver {
	case "mysql", "mariadb":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.Name)
	case "sqlite", "sqlite3":
		// writers take the database lock when their transaction begins and wait for it
		busy := c.BusyTimeout
		if busy <= 0 {
			busy = 10 * time.Second
		}
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate", c.Name, busy.Milliseconds())
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
		if c.Schema != "" {
			dsn += " search_path=" + c.Schema
		}
		return dsn
	}
}

// GeneratorDefaults are the lowest precedence parameters of every generator
func (c *Config) GeneratorDefaults() map[string]string {
	return map[string]string{
		"default_sequence_name":      c.Generator.DefaultSequence,
		"value_column":               c.Generator.ValueColumn,
		"initial_value":              strconv.FormatInt(c.Generator.InitialValue, 10),
		"increment_size":             strconv.FormatInt(c.Generator.IncrementSize, 10),
		"preferred_pooled_optimizer": c.Generator.PreferredPooled,
		"key_prefix":                 c.Cache.RedisPrefix,
	}
}

// loadEnvFile loads environment variables from path if it exists; variables already set win
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ValidateConfig validates the configuration and reports every problem at once
func ValidateConfig(cfg *Config) error {
	var problems []string

	// Validate database configuration
	switch cfg.Database.Driver {
	case "postgres", "postgresql", "pgx", "pq", "mysql", "mariadb", "sqlite", "sqlite3":
	default:
		problems = append(problems, "DB_DRIVER must be one of: postgres, pgx, pq, mysql, sqlite")
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Name == "" {
			problems = append(problems, "DB_NAME is required")
		}
		if !strings.HasPrefix(cfg.Database.Driver, "sqlite") {
			if cfg.Database.Host == "" {
				problems = append(problems, "DB_HOST is required")
			}
			if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
				problems = append(problems, "DB_PORT must be between 1 and 65535")
			}
		}
	}

	// Validate generator configuration
	if cfg.Generator.IncrementSize < 1 {
		problems = append(problems, "IDGEN_INCREMENT_SIZE must be at least 1")
	}
	if cfg.Generator.PreferredPooled != "pooled" && cfg.Generator.PreferredPooled != "pooled-lo" {
		problems = append(problems, "IDGEN_PREFERRED_POOLED must be one of: pooled, pooled-lo")
	}
	if cfg.Generator.MappingFile == "" {
		problems = append(problems, "IDGEN_MAPPING_FILE is required")
	}

	// Validate JWT configuration
	if len(cfg.JWT.SecretKey) < 32 {
		problems = append(problems, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		problems = append(problems, "JWT_ACCESS_TOKEN_TTL must be positive")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.MaxBatch < 1 {
		problems = append(problems, "SERVER_MAX_BATCH must be at least 1")
	}

	// Validate logging configuration
	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of: [debug info warn error]")
	}
	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		problems = append(problems, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		problems = append(problems, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}
