// Package adapter defines the database contract pivotsql executes plans
// against, plus shared database/sql plumbing for concrete adapters.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves by name from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
)

// Config selects and configures an adapter.
type Config struct {
	Type   string         `koanf:"type"`   // Registered adapter name, e.g. "duckdb"
	Path   string         `koanf:"path"`   // Database file; empty for in-memory
	Params map[string]any `koanf:"params"` // Adapter-specific settings
}

// Result is a fully read query result.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Adapter is a database that can load data, describe its tables and
// types, and run queries.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement and reads all of its rows.
	Query(ctx context.Context, sql string) (*Result, error)

	// LoadCSV loads a CSV file into a table, replacing it if it exists.
	LoadCSV(ctx context.Context, tableName string, filePath string) error

	// Catalog snapshots the tables and named types of the database.
	Catalog(ctx context.Context) (*binder.MemoryCatalog, error)
}
