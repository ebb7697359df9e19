package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(1), cfg.Generator.IncrementSize)
	assert.Equal(t, "pooled", cfg.Generator.PreferredPooled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "/tmp/ids.db")
	t.Setenv("IDGEN_INCREMENT_SIZE", "50")
	t.Setenv("IDGEN_PREFERRED_POOLED", "pooled-lo")
	t.Setenv("CACHE_REDIS_PREFIX", "ids:")
	t.Setenv("DB_BUSY_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/ids.db?_busy_timeout=3000&_journal_mode=WAL&_txlock=immediate", cfg.Database.ConnectionString())

	defaults := cfg.GeneratorDefaults()
	assert.Equal(t, "50", defaults["increment_size"])
	assert.Equal(t, "pooled-lo", defaults["preferred_pooled_optimizer"])
	assert.Equal(t, "ids:", defaults["key_prefix"])
	assert.Equal(t, "id_sequence", defaults["default_sequence_name"])
}

func TestConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "postgres",
			cfg:  DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", Name: "ids", SSLMode: "disable", Schema: "idgen"},
			want: "host=db port=5432 user=u password=p dbname=ids sslmode=disable search_path=idgen",
		},
		{
			name: "mysql",
			cfg:  DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "ids"},
			want: "u:p@tcp(db:3306)/ids?parseTime=true",
		},
		{
			name: "sqlite waits for the write lock",
			cfg:  DatabaseConfig{Driver: "sqlite", Name: "ids.db"},
			want: "file:ids.db?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate",
		},
		{
			name: "explicit dsn",
			cfg:  DatabaseConfig{Driver: "mysql", DSN: "custom"},
			want: "custom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ConnectionString())
		})
	}
}

func TestValidateConfigCollectsProblems(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Driver: "oracle", Port: 0},
		Generator: GeneratorConfig{IncrementSize: 0, PreferredPooled: "hilo"},
		Server:    ServerConfig{Port: 70000},
		Logging:   LoggingConfig{Level: "trace", Output: "syslog"},
		Cache:     CacheConfig{Enabled: true},
	}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	for _, want := range []string{
		"DB_DRIVER", "DB_NAME", "DB_HOST", "DB_PORT",
		"IDGEN_INCREMENT_SIZE", "IDGEN_PREFERRED_POOLED", "IDGEN_MAPPING_FILE",
		"JWT_SECRET_KEY", "JWT_ACCESS_TOKEN_TTL", "SERVER_PORT", "SERVER_MAX_BATCH",
		"LOG_LEVEL", "LOG_OUTPUT", "CACHE_REDIS_URL",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadEnvFileKeepsExistingVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IDGEN_TEST_A=from-file\nIDGEN_TEST_B=\"quoted\"\n"), 0o600))
	t.Setenv("IDGEN_TEST_A", "from-env")
	t.Setenv("IDGEN_TEST_B", "")
	os.Unsetenv("IDGEN_TEST_B")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("IDGEN_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("IDGEN_TEST_B"))

	assert.NoError(t, loadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
