// Package config loads pivotsql configuration from defaults, the
// pivotsql.yaml file, PIVOTSQL_* environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/adapter"
)

// Config holds all CLI configuration options.
type Config struct {
	Database     adapter.Config       `koanf:"database"`
	OutputFormat string               `koanf:"output"`
	LogLevel     string               `koanf:"log_level"`
	Seeds        []string             `koanf:"seeds"`
	StatePath    string               `koanf:"state_path"`
	Verbose      bool                 `koanf:"verbose"`
	Environment  string               `koanf:"environment"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// File is the config file that was read, if any
	File string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Database *adapter.Config `koanf:"database"`
	Seeds    []string        `koanf:"seeds"`
}

// Default configuration values.
const (
	DefaultDatabaseType = "duckdb"
	DefaultDatabasePath = ":memory:"
	DefaultOutput       = "auto" // Auto-detect: TTY=table, non-TTY=markdown
	DefaultLogLevel     = "warn"
)

// OutputFormats lists the accepted values of the output key.
var OutputFormats = []string{"auto", "table", "json", "csv", "markdown", "sql"}

func adapterDefaults() adapter.Config {
	return adapter.Config{Type: DefaultDatabaseType, Path: DefaultDatabasePath}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Type == "" {
		return fmt.Errorf("database.type is required")
	}
	if _, ok := adapter.Get(strings.ToLower(c.Database.Type)); !ok {
		return &adapter.UnknownAdapterError{
			Type:      c.Database.Type,
			Available: adapter.ListAdapters(),
		}
	}

	valid := false
	for _, f := range OutputFormats {
		if c.OutputFormat == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid output %q, must be one of: %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps a log_level value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", s)
	}
	return level, nil
}
