package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leapstack-labs/pivotsql/internal/testutil"
	"github.com/leapstack-labs/pivotsql/pkg/adapter"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/leapstack-labs/pivotsql/pkg/pivot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *binder.MemoryCatalog {
	cat := binder.NewMemoryCatalog()
	cat.AddTable("", "sales", "region", "quarter", "amount")
	cat.AddTable("", "t", "id", "q1", "q2")
	return cat
}

func entries(values ...string) []core.PivotColumnEntry {
	out := make([]core.PivotColumnEntry, len(values))
	for i, v := range values {
		out[i] = core.PivotColumnEntry{Values: []core.Value{core.StringValue(v)}}
	}
	return out
}

func salesPivot() *core.PivotRef {
	return &core.PivotRef{
		Source: &core.BaseTableRef{Name: "sales"},
		Pivots: []core.PivotColumn{{
			Expressions: []core.Expr{core.NewColumnRef("quarter")},
			Entries:     entries("Q1", "Q2"),
		}},
		Aggregates: []core.Expr{core.NewFuncCall("sum", core.NewColumnRef("amount"))},
	}
}

func quarterUnpivot() *core.PivotRef {
	return &core.PivotRef{
		Source: &core.BaseTableRef{Name: "t"},
		Pivots: []core.PivotColumn{{
			UnpivotNames: []string{"quarter"},
			Entries:      entries("q1", "q2"),
		}},
		UnpivotNames: []string{"amount"},
	}
}

func TestRewrite_Pivot(t *testing.T) {
	plan, err := Rewrite(testCatalog(), salesPivot(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, pivot.DefaultAlias, plan.Alias)
	assert.Equal(t, []string{"region", "Q1", "Q2"}, plan.Columns)
	assert.True(t, strings.HasPrefix(plan.SQL, "SELECT\n  *\nFROM (\n"), plan.SQL)
	assert.True(t, strings.HasSuffix(plan.SQL, ") AS __unnamed_pivot"), plan.SQL)
	assert.Contains(t, plan.SQL, "map(__internal_pivot_name1, __internal_pivot_aggregate1)")
	assert.NotContains(t, plan.SQL, "PIVOT ")
}

func TestRewrite_ColumnAliasesAndAlias(t *testing.T) {
	ref := salesPivot()
	ref.Alias = "p"
	ref.ColumnAliases = []string{"r"}

	plan, err := Rewrite(testCatalog(), ref, nil)
	require.NoError(t, err)

	assert.Equal(t, "p", plan.Alias)
	assert.Equal(t, []string{"r", "Q1", "Q2"}, plan.Columns)
	assert.True(t, strings.HasSuffix(plan.SQL, ") AS p(r)"), plan.SQL)
}

func TestRewrite_NestedDeclarationsAreLowered(t *testing.T) {
	inner := salesPivot()
	inner.Alias = "p"
	outer := &core.PivotRef{
		Source: inner,
		Pivots: []core.PivotColumn{{
			UnpivotNames: []string{"quarter"},
			Entries:      entries("Q1", "Q2"),
		}},
		UnpivotNames: []string{"amount"},
		Alias:        "u",
	}
	// Nested one level deeper through a derived table.
	wrapped := &core.PivotRef{
		Source: &core.SubqueryRef{
			Select: &core.SelectNode{
				SelectList: []core.Expr{&core.StarExpr{}},
				From:       outer,
			},
			Alias: "s",
		},
		Pivots: []core.PivotColumn{{
			Expressions: []core.Expr{core.NewColumnRef("quarter")},
			Entries:     entries("Q1"),
		}},
		Aggregates: []core.Expr{core.NewFuncCall("max", core.NewColumnRef("amount"))},
	}
	before := core.CopyTableRef(wrapped)

	plan, err := Rewrite(testCatalog(), wrapped, testutil.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "Q1"}, plan.Columns)
	assert.NotContains(t, plan.SQL, "PIVOT ")
	assert.Contains(t, plan.SQL, ") AS u")
	assert.Contains(t, plan.SQL, ") AS p")
	assert.Equal(t, before, wrapped, "declaration must not be modified")
}

func TestRewrite_Errors(t *testing.T) {
	t.Run("semantic error", func(t *testing.T) {
		ref := salesPivot()
		ref.Aggregates = []core.Expr{core.NewColumnRef("amount")}

		_, err := Rewrite(testCatalog(), ref, nil)
		require.Error(t, err)
		var semErr *pivot.SemanticError
		assert.True(t, errors.As(err, &semErr), "got %T: %v", err, err)
	})

	t.Run("unknown table", func(t *testing.T) {
		ref := salesPivot()
		ref.Source = &core.BaseTableRef{Name: "missing"}

		_, err := Rewrite(testCatalog(), ref, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, binder.ErrNotFound)
	})

	t.Run("nested error surfaces", func(t *testing.T) {
		inner := salesPivot()
		inner.Pivots[0].Entries = nil
		outer := quarterUnpivot()
		outer.Source = inner

		_, err := Rewrite(testCatalog(), outer, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PIVOT IN list cannot be empty")
	})
}

func TestEngine_RewriteUsesFixedCatalog(t *testing.T) {
	e := New(Config{Catalog: testCatalog(), Logger: testutil.NewTestLogger(t)})
	defer func() { _ = e.Close() }()

	plan, err := e.Rewrite(context.Background(), quarterUnpivot())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "quarter", "amount"}, plan.Columns)
}

func TestEngine_RunWithoutDatabase(t *testing.T) {
	e := New(Config{Catalog: testCatalog()})

	_, err := e.Run(context.Background(), salesPivot())
	assert.ErrorIs(t, err, ErrNoDatabase)
}

type fakeQuerier struct {
	sql    string
	result *adapter.Result
	err    error
}

func (f *fakeQuerier) Query(_ context.Context, sql string) (*adapter.Result, error) {
	f.sql = sql
	return f.result, f.err
}

func TestEngine_Execute(t *testing.T) {
	logger, logs := testutil.NewCapturingLogger()
	e := New(Config{Catalog: testCatalog(), Logger: logger})
	plan := &Plan{Alias: "p", Columns: []string{"a"}, SQL: "SELECT 1 AS a"}

	q := &fakeQuerier{result: &adapter.Result{Columns: []string{"a"}, Rows: [][]any{{1}}}}
	run, err := e.Execute(context.Background(), q, plan)
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1 AS a", q.sql)
	assert.NotEmpty(t, run.ID)
	assert.Same(t, plan, run.Plan)
	assert.Equal(t, q.result, run.Result)
	assert.Contains(t, logs.String(), "run_id="+run.ID)
	assert.Contains(t, logs.String(), "run completed")

	q.err = errors.New("boom")
	_, err = e.Execute(context.Background(), q, plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute plan p: boom")
}
