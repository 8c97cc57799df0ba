// Package config loads the connection and logging settings of the record
// tools.
//
// Settings are layered, lowest precedence first:
//
//  1. an optional .env file next to the YAML file,
//  2. the YAML file itself (optional),
//  3. environment variables prefixed RECORD_, where "__" maps to "."
//     (RECORD_DATABASE__HOST sets database.host).
//
// The merged tree is unmarshalled into Config and validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RECORD_"

// Database describes the storage connection.
type Database struct {
	// Dialect is mysql, postgres or sqlite.
	Dialect string `koanf:"dialect" validate:"required,oneof=mysql postgres sqlite"`
	// Driver selects the database/sql driver. For postgres it is either
	// "postgres" (lib/pq, the default) or "pgx".
	Driver string `koanf:"driver" validate:"omitempty,oneof=mysql postgres pgx sqlite"`
	// DSN is used verbatim when set; the fields below are ignored.
	DSN string `koanf:"dsn"`

	Host     string            `koanf:"host"`
	Port     int               `koanf:"port" validate:"omitempty,min=1,max=65535"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Name     string            `koanf:"name"`
	Params   map[string]string `koanf:"params"`
	// Path is the SQLite database file, or ":memory:".
	Path string `koanf:"path"`
}

// Stats configures statement instrumentation.
type Stats struct {
	Enabled       bool          `koanf:"enabled"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
	// Debug logs every statement at debug level.
	Debug bool `koanf:"debug"`
}

// Log configures the logger.
type Log struct {
	Dir     string `koanf:"dir"`
	Level   string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

// Config is the root of the configuration tree.
type Config struct {
	Database Database `koanf:"database"`
	Stats    Stats    `koanf:"stats"`
	Log      Log      `koanf:"log"`
}

var validate = validator.New()

// ErrInvalid wraps validation failures of a loaded configuration.
var ErrInvalid = errors.New("config: invalid configuration")

// Load reads the layers rooted at path and returns the validated result.
// An empty path or a missing file skips the YAML layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		// .env is optional.
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: loading %s: %w", path, err)
			}
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps RECORD_DATABASE__HOST to database.host.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
}

// Validate checks the struct tags and the per-dialect requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	db := c.Database
	if db.Driver == "pgx" && db.Dialect != "postgres" {
		return fmt.Errorf("%w: driver pgx requires the postgres dialect", ErrInvalid)
	}
	if db.DSN != "" {
		return nil
	}
	switch db.Dialect {
	case "sqlite":
		if db.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", ErrInvalid)
		}
	default:
		if db.Host == "" || db.Name == "" {
			return fmt.Errorf("%w: database.host and database.name are required for %s", ErrInvalid, db.Dialect)
		}
	}
	return nil
}
