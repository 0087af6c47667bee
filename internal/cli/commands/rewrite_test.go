package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/pivotsql/internal/engine"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesPivotYAML = `pivot:
  source: sales
  on:
    - expr: quarter
      in: [Q1, Q2]
  using:
    - func: sum
      args: [amount]
`

func salesCatalog() *binder.MemoryCatalog {
	cat := binder.NewMemoryCatalog()
	cat.AddTable("", "sales", "region", "quarter", "amount")
	return cat
}

func writeDeclarations(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		paths = append(paths, path)
	}
	return paths
}

func TestRewriteFiles_KeepsArgumentOrder(t *testing.T) {
	paths := writeDeclarations(t, map[string]string{
		"a.yaml": salesPivotYAML,
		"b.yaml": strings.Replace(salesPivotYAML, "[Q1, Q2]", "[Q2]", 1),
	})
	logger := slog.New(slog.DiscardHandler)

	plans, err := rewriteFiles(context.Background(), salesCatalog(), paths, logger)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	for i, path := range paths {
		want, err := rewriteFile(salesCatalog(), path, logger)
		require.NoError(t, err)
		assert.Equal(t, want.SQL, plans[i].SQL, path)
	}
}

func TestRewriteFiles_ReportsFailingFile(t *testing.T) {
	paths := writeDeclarations(t, map[string]string{
		"bad.yaml": strings.Replace(salesPivotYAML, "source: sales", "source: nowhere", 1),
	})

	_, err := rewriteFiles(context.Background(), salesCatalog(), paths, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), paths[0])
	assert.ErrorIs(t, err, binder.ErrNotFound)
}

func TestWriteRewrite(t *testing.T) {
	paths := writeDeclarations(t, map[string]string{"a.yaml": salesPivotYAML})
	plan, err := rewriteFile(salesCatalog(), paths[0], slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	var sqlOut bytes.Buffer
	writeRewriteSQL(&sqlOut, "a.yaml", plan, true)
	assert.True(t, strings.HasPrefix(sqlOut.String(), "-- a.yaml\nSELECT"))
	assert.True(t, strings.HasSuffix(sqlOut.String(), ";\n"))

	var jsonOut bytes.Buffer
	require.NoError(t, writeRewriteJSON(&jsonOut, []string{"a.yaml"}, []*engine.Plan{plan}))
	var got []rewriteOutput
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "a.yaml", got[0].File)
	assert.Equal(t, []string{"region", "Q1", "Q2"}, got[0].Columns)
	assert.Equal(t, plan.SQL, got[0].SQL)
}
