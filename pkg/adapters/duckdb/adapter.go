// Package duckdb provides the DuckDB database adapter.
//
// Importing the package registers the adapter under the name "duckdb".
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/format"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// A nil logger discards all output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// NewWithDB wraps an open database handle.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Adapter {
	a := New(logger)
	a.DB = db
	return a
}

// Connect establishes a connection to DuckDB.
// An empty path or ":memory:" opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		a.DB = nil
		return err
	}

	a.Logger.Debug("connected to duckdb", slog.String("path", cfg.Path))
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s", format.Ident(ext), format.Ident(ext))); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmt := fmt.Sprintf("SET %s = %s", format.Ident(k), quote(p.Settings[k]))
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// LoadCSV loads data from a CSV file into a table.
// DuckDB will automatically infer the schema from the CSV file.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)",
		format.Ident(tableName),
		quote(absPath),
	)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV %s: %w", filePath, err)
	}

	a.Logger.Debug("loaded seed", slog.String("table", tableName), slog.String("file", absPath))
	return nil
}

// Catalog snapshots the user tables and enum types of the database.
func (a *Adapter) Catalog(ctx context.Context) (*binder.MemoryCatalog, error) {
	cat := binder.NewMemoryCatalog()
	if err := a.LoadTableColumns(ctx, cat); err != nil {
		return nil, err
	}
	if err := a.loadTypes(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// loadTypes registers user-defined types. Enum domains are read in
// ordinal order.
func (a *Adapter) loadTypes(ctx context.Context, cat *binder.MemoryCatalog) error {
	const query = `
		SELECT
			type_name,
			logical_type
		FROM duckdb_types()
		WHERE NOT internal
		ORDER BY type_name
	`
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query types: %w", err)
	}

	type namedType struct{ name, logical string }
	var types []namedType
	for rows.Next() {
		var t namedType
		if err := rows.Scan(&t.name, &t.logical); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("error iterating types: %w", err)
	}
	_ = rows.Close()

	for _, t := range types {
		if !strings.EqualFold(t.logical, "ENUM") {
			cat.AddType(binder.TypeInfo{Name: t.name, Kind: binder.TypeOther, SQLType: t.logical})
			continue
		}
		values, err := a.enumValues(ctx, t.name)
		if err != nil {
			return err
		}
		cat.AddEnum(t.name, values...)
	}
	return nil
}

func (a *Adapter) enumValues(ctx context.Context, name string) ([]string, error) {
	query := fmt.Sprintf("SELECT unnest(enum_range(NULL::%s))::VARCHAR", format.Ident(name))
	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read enum %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan enum %s: %w", name, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enum %s: %w", name, err)
	}
	return values, nil
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
