package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leapstack-labs/pivotsql/internal/cli/testutil"
	_ "github.com/leapstack-labs/pivotsql/pkg/adapters/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "rewrite", "run", "history", "completion"})

	for _, flag := range []string{"config", "database", "db-type", "seed", "output", "log-level", "env", "state", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRewrite_PrintsSQL(t *testing.T) {
	p := testutil.SetupTestProject(t)

	out, _, err := execute(t, "rewrite", p.Path("sales_pivot.yaml"), "--seed", p.Seeds)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "SELECT"), "got: %s", out)
	assert.Contains(t, out, "GROUP BY")
	assert.NotContains(t, out, "PIVOT")
	assert.True(t, strings.HasSuffix(out, ";\n"))
}

func TestRewrite_MultipleFilesAsJSON(t *testing.T) {
	p := testutil.SetupTestProject(t)

	out, _, err := execute(t, "rewrite", "-o", "json", "--seed", p.Seeds,
		p.Path("sales_pivot.yaml"), p.Path("quarters_unpivot.yaml"))
	require.NoError(t, err)

	var got []struct {
		File    string   `json:"file"`
		Columns []string `json:"columns"`
		SQL     string   `json:"sql"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)

	assert.Equal(t, p.Path("sales_pivot.yaml"), got[0].File)
	assert.Equal(t, []string{"region", "Q1", "Q2"}, got[0].Columns)
	assert.Equal(t, p.Path("quarters_unpivot.yaml"), got[1].File)
	assert.Equal(t, []string{"region", "quarter", "total"}, got[1].Columns)
}

func TestRun_CSV(t *testing.T) {
	p := testutil.SetupTestProject(t)

	out, _, err := execute(t, "run", p.Path("sales_pivot.yaml"), "--seed", p.Seeds, "-o", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "region,Q1,Q2", lines[0])
	assert.ElementsMatch(t, []string{"A,10,20", "B,30,NULL"}, lines[1:])
}

func TestRun_Markdown(t *testing.T) {
	p := testutil.SetupTestProject(t)

	out, _, err := execute(t, "run", p.Path("quarters_unpivot.yaml"), "--seed", p.Seeds, "-o", "markdown")
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "quarter")
}

func TestRun_SQLOutput(t *testing.T) {
	p := testutil.SetupTestProject(t)

	out, _, err := execute(t, "run", p.Path("sales_pivot.yaml"), "--seed", p.Seeds, "-o", "sql")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "SELECT"), "got: %s", out)
}

func TestRun_ConfigFile(t *testing.T) {
	p := testutil.SetupTestProject(t)
	testutil.WriteFile(t, p.Path("pivotsql.yaml"), `seeds:
  - seeds
output: csv
`)

	out, _, err := execute(t, "--config", p.Path("pivotsql.yaml"), "run", p.Path("sales_pivot.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "region,Q1,Q2")
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	p := testutil.SetupTestProject(t)

	_, stderr, err := execute(t, "run", p.Path("sales_pivot.yaml"), "--seed", p.Seeds, "-o", "csv", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "run completed")
}

func TestHistory_RecordsRuns(t *testing.T) {
	p := testutil.SetupTestProject(t)
	statePath := p.Path(".pivotsql/state.db")

	_, _, err := execute(t, "run", p.Path("sales_pivot.yaml"), "--seed", p.Seeds, "--state", statePath, "-o", "csv")
	require.NoError(t, err)
	_, _, err = execute(t, "run", p.Path("missing.yaml"), "--state", statePath, "-o", "csv")
	require.Error(t, err)

	out, _, err := execute(t, "history", "--state", statePath, "-o", "json")
	require.NoError(t, err)

	var runs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 2)

	byFile := map[string]map[string]any{}
	for _, r := range runs {
		byFile[r["file"].(string)] = r
	}
	assert.Equal(t, "success", byFile[p.Path("sales_pivot.yaml")]["status"])
	assert.Equal(t, "2", byFile[p.Path("sales_pivot.yaml")]["rows"])
	assert.Equal(t, "failed", byFile[p.Path("missing.yaml")]["status"])
	assert.Contains(t, byFile[p.Path("missing.yaml")]["error"], "failed to read declaration")

	out, _, err = execute(t, "history", "--state", statePath, "-n", "1", "-o", "csv")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestHistory_RequiresState(t *testing.T) {
	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state database configured")
}

func TestCommands_Errors(t *testing.T) {
	p := testutil.SetupTestProject(t)
	testutil.WriteFile(t, p.Path("bad.yaml"), "pivot:\n  source: sales\n")
	testutil.WriteFile(t, p.Path("missing_table.yaml"), `pivot:
  source: nowhere
  on:
    - expr: quarter
      in: [Q1]
  using:
    - func: sum
      args: [amount]
`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "invalid output",
			args:    []string{"run", p.Path("sales_pivot.yaml"), "-o", "xml"},
			wantErr: "invalid output",
		},
		{
			name:    "unknown adapter",
			args:    []string{"run", p.Path("sales_pivot.yaml"), "--db-type", "oracle"},
			wantErr: "unknown database type",
		},
		{
			name:    "bad declaration",
			args:    []string{"rewrite", p.Path("bad.yaml")},
			wantErr: "pivot requires a using list",
		},
		{
			name:    "missing declaration file",
			args:    []string{"run", p.Path("nope.yaml")},
			wantErr: "failed to read declaration",
		},
		{
			name:    "unknown table",
			args:    []string{"rewrite", p.Path("missing_table.yaml"), "--seed", p.Seeds},
			wantErr: "nowhere",
		},
		{
			name:    "no arguments",
			args:    []string{"rewrite"},
			wantErr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	t.Setenv("PIVOTSQL_OUTPUT", "not-a-format")

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pivotsql v"+Version)
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "pivotsql")
}
