package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// restoring the previous one on cleanup (equivalent of testing.T.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "spans", c.Dataset)
	assert.Equal(t, "all", c.FreeTextMode)
	assert.Equal(t, "sqlite", c.Store.Backend)
	assert.Equal(t, "eventsearch.db", c.Store.SQLitePath)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
	assert.Empty(t, c.Cache.RedisAddr)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
free_text_mode: last
catalog_files:
  - logs.yaml
store:
  backend: postgres
  postgres_dsn: postgres://localhost/events
cache:
  redis_addr: localhost:6379
  ttl: 30s
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "last", c.FreeTextMode)
	assert.Equal(t, []string{"logs.yaml"}, c.CatalogFiles)
	assert.Equal(t, "postgres", c.Store.Backend)
	assert.Equal(t, "eventsearch", c.Store.PostgresSchema)
	assert.Equal(t, "localhost:6379", c.Cache.RedisAddr)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")
	t.Setenv("EVENTSEARCH_LOG_LEVEL", "warn")
	t.Setenv("EVENTSEARCH_STORE_SQLITE_PATH", "/tmp/x.db")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "/tmp/x.db", c.Store.SQLitePath)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "log_level: loud\n"},
		{"backend", "store:\n  backend: mysql\n"},
		{"postgres without dsn", "store:\n  backend: postgres\n"},
		{"negative ttl", "cache:\n  ttl: -1s\n"},
		{"free text mode", "free_text_mode: first\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOverridesRunBeforeValidation(t *testing.T) {
	t.Setenv("EVENTSEARCH_STORE_BACKEND", "postgres")

	_, err := Load(writeConfig(t, "log_level: info\n"))
	require.Error(t, err)

	c, err := Load(writeConfig(t, "log_level: info\n"), func(c *Config) {
		c.Store.PostgresDSN = "postgres://localhost/events"
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Store.Backend)
	assert.Equal(t, "postgres://localhost/events", c.Store.PostgresDSN)

	_, err = Load(writeConfig(t, "log_level: info\n"), func(c *Config) {
		c.Store.PostgresDSN = "postgres://localhost/events"
		c.LogLevel = "trace"
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}
