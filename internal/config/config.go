package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Record types the service can expose at /items.
const (
	RecordTypeItems   = "items"
	RecordTypeTickets = "tickets"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	DynamoDB DynamoDBConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"records-service"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// StorageConfig selects the record variant and the backend serving it.
type StorageConfig struct {
	RecordType string `env:"RECORD_TYPE" envDefault:"items"`
	Backend    string `env:"DB_TYPE" envDefault:"postgres"`
}

// PostgresConfig holds DB connection values. URL wins over the discrete fields.
type PostgresConfig struct {
	URL            string `env:"DATABASE_URL"`
	Host           string `env:"DB_HOST"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	User           string `env:"DB_USER"`
	Password       string `env:"DB_PASS"`
	Name           string `env:"DB_NAME"`
	SSLMode        string `env:"DB_SSLMODE"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"1"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// SQLiteConfig locates the database file.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"records.db"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"records"`
}

// DynamoDBConfig names the table and region. Endpoint overrides the AWS
// endpoint, e.g. for DynamoDB Local.
type DynamoDBConfig struct {
	Table    string `env:"DYNAMODB_TABLE" envDefault:"tickets"`
	Region   string `env:"AWS_REGION"`
	Endpoint string `env:"DYNAMODB_ENDPOINT"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.RecordType = strings.ToLower(strings.TrimSpace(cfg.Storage.RecordType))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	return &cfg, nil
}

// Validate reports every missing or invalid setting for the selected record
// type and backend. Unknown backend names are left to the backend registry,
// which knows the supported set.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.RecordType {
	case RecordTypeItems, RecordTypeTickets:
	default:
		errs = append(errs, fmt.Errorf("RECORD_TYPE %q is invalid (supported: %s, %s)",
			c.Storage.RecordType, RecordTypeItems, RecordTypeTickets))
	}

	switch c.Storage.Backend {
	case "postgres":
		if c.Postgres.ConnString() == "" {
			errs = append(errs, errors.New("postgres requires DATABASE_URL or DB_HOST, DB_USER, DB_PASS and DB_NAME"))
		}
	case "sqlite":
		if strings.TrimSpace(c.SQLite.Path) == "" {
			errs = append(errs, errors.New("sqlite requires SQLITE_PATH"))
		}
	case "redis":
		if strings.TrimSpace(c.Redis.Addr) == "" {
			errs = append(errs, errors.New("redis requires REDIS_ADDR"))
		}
	case "dynamodb":
		if strings.TrimSpace(c.DynamoDB.Table) == "" {
			errs = append(errs, errors.New("dynamodb requires DYNAMODB_TABLE"))
		}
		if strings.TrimSpace(c.DynamoDB.Region) == "" {
			errs = append(errs, errors.New("dynamodb requires AWS_REGION"))
		}
	}

	if c.App.Port == "" {
		errs = append(errs, errors.New("APP_PORT must not be empty"))
	}
	return errors.Join(errs...)
}

// ConnString returns the postgres connection string, or "" when the
// configuration is incomplete.
func (p PostgresConfig) ConnString() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Host == "" || p.User == "" || p.Password == "" || p.Name == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Name,
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{p.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}
