package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
)

// ErrNotConnected is returned by operations on an adapter before Connect.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and column-catalog implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	b.logger().Debug("closing database connection")
	return b.DB.Close()
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement and reads all of its rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*Result, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return ReadRows(rows)
}

// ReadRows drains rows into a Result.
func ReadRows(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// LoadTableColumns reads every user table's columns from
// information_schema into catalog.
func (b *BaseSQLAdapter) LoadTableColumns(ctx context.Context, catalog *binder.MemoryCatalog) error {
	if b.DB == nil {
		return ErrNotConnected
	}

	const query = `
		SELECT
			table_schema,
			table_name,
			column_name
		FROM information_schema.columns
		ORDER BY table_schema, table_name, ordinal_position
	`
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type tableKey struct{ schema, name string }
	var order []tableKey
	columns := make(map[tableKey][]string)
	for rows.Next() {
		var key tableKey
		var column string
		if err := rows.Scan(&key.schema, &key.name, &column); err != nil {
			return fmt.Errorf("failed to scan column metadata: %w", err)
		}
		if _, seen := columns[key]; !seen {
			order = append(order, key)
		}
		columns[key] = append(columns[key], column)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating column metadata: %w", err)
	}

	for _, key := range order {
		catalog.AddTable(key.schema, key.name, columns[key]...)
	}
	b.logger().Debug("loaded table columns", slog.Int("tables", len(order)))
	return nil
}
