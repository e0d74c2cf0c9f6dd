// Package config loads the server configuration.
//
// Values are resolved in order, later sources winning: built-in defaults, an
// optional TOML file, a .env file, and finally the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the complete server configuration.
type Config struct {
	ListenAddr      string        `toml:"listen_addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	// PublicListing exposes the anonymous listing of ownerless tasks.
	PublicListing bool           `toml:"public_listing"`
	StoreBackend  string         `toml:"store_backend"`
	Log           LogConfig      `toml:"log"`
	JWT           JWTConfig      `toml:"jwt"`
	DynamoDB      DynamoDBConfig `toml:"dynamodb"`
	Postgres      PostgresConfig `toml:"postgres"`
	SQLite        SQLiteConfig   `toml:"sqlite"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// JWTConfig configures bearer token verification. At most one of Secret
// (HS256), PublicKeyFile (RS256, PEM) and JWKSURL may be set. When none is
// set, keys are fetched from the issuer's JWKS document.
type JWTConfig struct {
	Secret        string `toml:"secret"`
	PublicKeyFile string `toml:"public_key_file"`
	JWKSURL       string `toml:"jwks_url"`
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
}

type DynamoDBConfig struct {
	TableName        string        `toml:"table_name"`
	Region           string        `toml:"region"`
	Endpoint         string        `toml:"endpoint"`
	OwnerIndexName   string        `toml:"owner_index_name"`
	ConsistentRead   bool          `toml:"consistent_read"`
	MaxRetryAttempts int           `toml:"max_retry_attempts"`
	MaxRetryBackoff  time.Duration `toml:"max_retry_backoff"`
}

type PostgresConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	Database       string `toml:"database"`
	SSLMode        string `toml:"sslmode"`
	Table          string `toml:"table"`
	MaxConnections int32  `toml:"max_connections"`
}

type SQLiteConfig struct {
	Path  string `toml:"path"`
	Table string `toml:"table"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: 10 * time.Second,
		StoreBackend:    BackendDynamoDB,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		DynamoDB: DynamoDBConfig{
			OwnerIndexName:   "userId-index",
			ConsistentRead:   true,
			MaxRetryAttempts: 3,
			MaxRetryBackoff:  5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:           "localhost",
			Port:           5432,
			SSLMode:        "prefer",
			Table:          "tasks",
			MaxConnections: 10,
		},
		SQLite: SQLiteConfig{
			Path:  "todos.db",
			Table: "tasks",
		},
	}
}

// Load builds the configuration. path names an optional TOML file; it is
// an error if path is set and the file does not exist. envFile names an
// optional dotenv file whose variables are added to the environment without
// overriding variables that are already set; a missing envFile is ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errs []error

	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	duration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	boolean("PUBLIC_LISTING", &c.PublicListing)
	str("STORE_BACKEND", &c.StoreBackend)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("JWT_SECRET", &c.JWT.Secret)
	str("JWT_PUBLIC_KEY_FILE", &c.JWT.PublicKeyFile)
	str("JWT_JWKS_URL", &c.JWT.JWKSURL)
	str("JWT_ISSUER", &c.JWT.Issuer)
	str("JWT_AUDIENCE", &c.JWT.Audience)

	str("TABLE_NAME", &c.DynamoDB.TableName)
	str("AWS_REGION", &c.DynamoDB.Region)
	str("DYNAMODB_ENDPOINT", &c.DynamoDB.Endpoint)
	str("DYNAMODB_OWNER_INDEX", &c.DynamoDB.OwnerIndexName)
	boolean("DYNAMODB_CONSISTENT_READ", &c.DynamoDB.ConsistentRead)
	integer("DYNAMODB_MAX_RETRY_ATTEMPTS", &c.DynamoDB.MaxRetryAttempts)
	duration("DYNAMODB_MAX_RETRY_BACKOFF", &c.DynamoDB.MaxRetryBackoff)

	str("POSTGRES_HOST", &c.Postgres.Host)
	integer("POSTGRES_PORT", &c.Postgres.Port)
	str("POSTGRES_USER", &c.Postgres.User)
	str("POSTGRES_PASSWORD", &c.Postgres.Password)
	str("POSTGRES_DB", &c.Postgres.Database)
	str("POSTGRES_SSLMODE", &c.Postgres.SSLMode)
	str("POSTGRES_TABLE", &c.Postgres.Table)

	if v, ok := lookup("POSTGRES_MAX_CONNECTIONS"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("POSTGRES_MAX_CONNECTIONS: %w", err))
		} else {
			c.Postgres.MaxConnections = int32(n)
		}
	}

	str("SQLITE_PATH", &c.SQLite.Path)
	str("SQLITE_TABLE", &c.SQLite.Table)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}

	return nil
}

// Validate checks the server settings and the selected store backend. Token
// verification settings are checked by [JWTConfig.Validate], since only the
// server needs them. Backend options such as table names are validated again
// by the store on connect.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address cannot be empty")
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.DynamoDB.TableName == "" {
			return errors.New("table name is required for the DynamoDB backend (TABLE_NAME)")
		}
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return errors.New("user and database are required for the Postgres backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return errors.New("path is required for the SQLite backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	return nil
}

// Validate checks that exactly one verification key source is configured,
// counting an issuer without any other source as a JWKS source.
func (j JWTConfig) Validate() error {
	sources := 0

	for _, source := range []string{j.Secret, j.PublicKeyFile, j.JWKSURL} {
		if source != "" {
			sources++
		}
	}

	if sources > 1 {
		return errors.New("only one of JWT secret, JWT public key file and JWT JWKS URL may be set")
	}

	if sources == 0 && j.Issuer == "" {
		return errors.New("one of JWT secret, JWT public key file, JWT JWKS URL or JWT issuer must be set")
	}

	return nil
}

// JWKSEndpoint returns the URL of the key set used to verify tokens, or an
// empty string when a secret or public key file is configured. Without an
// explicit URL it is derived from the issuer, as OpenID providers publish
// their keys at /.well-known/jwks.json.
func (j JWTConfig) JWKSEndpoint() string {
	if j.JWKSURL != "" {
		return j.JWKSURL
	}

	if j.Secret != "" || j.PublicKeyFile != "" || j.Issuer == "" {
		return ""
	}

	return strings.TrimSuffix(j.Issuer, "/") + "/.well-known/jwks.json"
}
