package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
	"github.com/stretchr/testify/require"
)

// OpenDuckDB opens an in-memory DuckDB database, runs the setup
// statements, and closes the database when the test ends.
func OpenDuckDB(t testing.TB, setup ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range setup {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}
