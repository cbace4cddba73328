package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RecordTypeItems, cfg.Storage.RecordType)
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "records.db", cfg.SQLite.Path)
	assert.Equal(t, "records", cfg.Redis.KeyPrefix)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadNormalizesSelectors(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_TYPE", " SQLite ")
	t.Setenv("RECORD_TYPE", "Tickets")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, RecordTypeTickets, cfg.Storage.RecordType)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			App:     AppConfig{Port: "8080"},
			Storage: StorageConfig{RecordType: RecordTypeItems, Backend: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory needs nothing", func(*Config) {}, ""},
		{"bad record type", func(c *Config) { c.Storage.RecordType = "widgets" }, "RECORD_TYPE"},
		{"postgres without credentials", func(c *Config) { c.Storage.Backend = "postgres" }, "DATABASE_URL"},
		{"postgres with url", func(c *Config) {
			c.Storage.Backend = "postgres"
			c.Postgres.URL = "postgres://u:p@db/records"
		}, ""},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = "sqlite" }, "SQLITE_PATH"},
		{"dynamodb without region", func(c *Config) {
			c.Storage.Backend = "dynamodb"
			c.DynamoDB.Table = "tickets"
		}, "AWS_REGION"},
		{"empty port", func(c *Config) { c.App.Port = "" }, "APP_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresConnString(t *testing.T) {
	assert.Equal(t, "", PostgresConfig{Host: "db"}.ConnString())
	assert.Equal(t, "postgres://x", PostgresConfig{URL: "postgres://x", Host: "ignored"}.ConnString())

	dsn := PostgresConfig{
		Host: "db", Port: "5433", User: "app", Password: "p@ss", Name: "records", SSLMode: "disable",
	}.ConnString()
	assert.Equal(t, "postgres://app:p%40ss@db:5433/records?sslmode=disable", dsn)
}

func TestAppAddr(t *testing.T) {
	assert.Equal(t, "0.0.0.0:9000", AppConfig{Host: "0.0.0.0", Port: "9000"}.Addr())
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
