package pivot

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/pivotsql/internal/testutil"
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/leapstack-labs/pivotsql/pkg/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *binder.MemoryCatalog {
	cat := binder.NewMemoryCatalog()
	cat.AddTable("", "sales", "region", "quarter", "amount")
	cat.AddTable("", "sales_by_rep", "region", "rep", "quarter", "amount")
	cat.AddTable("", "t", "id", "q1", "q2")
	cat.AddTable("", "halves", "id", "q1", "q2", "q3", "q4")
	cat.AddTable("", "people", "name", "feeling")
	cat.AddEnum("mood", "sad", "ok", "happy")
	cat.AddType(binder.TypeInfo{Name: "label", Kind: binder.TypeOther, SQLType: "VARCHAR"})
	return cat
}

func newTestBinder(t *testing.T) (*binder.Binder, *binder.Scope) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	b := binder.New(testCatalog(),
		binder.WithLogger(logger),
		binder.WithPivotHandler(NewHandler(WithLogger(logger))))
	return b, b.CreateScope(nil)
}

func col(name string) *core.ColumnRef { return core.NewColumnRef(name) }

func salesPivot() *core.PivotRef {
	return &core.PivotRef{
		Source: &core.BaseTableRef{Name: "sales"},
		Pivots: []core.PivotColumn{{
			Expressions: []core.Expr{col("quarter")},
			Entries:     entries("Q1", "Q2"),
		}},
		Aggregates: []core.Expr{core.NewFuncCall("sum", col("amount"))},
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

func bindPivot(t *testing.T, ref *core.PivotRef) (*binder.BoundSubquery, *binder.Scope, error) {
	t.Helper()
	b, scope := newTestBinder(t)
	bound, err := b.Bind(scope, ref)
	if err != nil {
		return nil, scope, err
	}
	sub, ok := bound.(*binder.BoundSubquery)
	require.True(t, ok)
	return sub, scope, nil
}

func TestBindPivot_Sales(t *testing.T) {
	sub, scope, err := bindPivot(t, salesPivot())
	require.NoError(t, err)

	assert.Equal(t, DefaultAlias, sub.Alias)
	assert.Equal(t, []string{"region", "Q1", "Q2"}, sub.Columns())

	binding, ok := scope.Lookup(DefaultAlias)
	require.True(t, ok)
	assert.Equal(t, []string{"region", "Q1", "Q2"}, binding.Columns)

	expected := `SELECT
  __internal_pivot_group1 AS region,
  array_extract(map_extract(__internal_pivot_map1, 'Q1'), 1) AS Q1,
  array_extract(map_extract(__internal_pivot_map1, 'Q2'), 1) AS Q2
FROM (
  SELECT
    __internal_pivot_group1 AS __internal_pivot_group1,
    map(__internal_pivot_name1, __internal_pivot_aggregate1) AS __internal_pivot_map1
  FROM (
    SELECT
      __internal_pivot_group1 AS __internal_pivot_group1,
      list(__internal_pivot_aggregate1) AS __internal_pivot_aggregate1,
      list(__internal_pivot_ref1) AS __internal_pivot_name1
    FROM (
      SELECT
        region AS __internal_pivot_group1,
        quarter AS __internal_pivot_ref1,
        sum(amount) AS __internal_pivot_aggregate1
      FROM sales
      GROUP BY
        1, 2
    )
    GROUP BY
      1
  )
)`
	assert.Equal(t, expected, format.Select(sub.Select.Node))
}

func TestBindPivot_DoesNotModifyDeclaration(t *testing.T) {
	ref := salesPivot()
	_, _, err := bindPivot(t, ref)
	require.NoError(t, err)

	assert.NotNil(t, ref.Source)
	assert.Equal(t, "", ref.Aggregates[0].GetAlias())
	assert.Equal(t, "", ref.Pivots[0].Expressions[0].GetAlias())
	assert.Len(t, ref.Pivots[0].Entries, 2)
}

func TestBindPivot_OutputNaming(t *testing.T) {
	tests := []struct {
		name       string
		aggregates []core.Expr
		groups     []string
		source     string
		aliases    []string
		want       []string
	}{
		{
			name:       "aliased aggregate",
			aggregates: []core.Expr{core.Aliased(core.NewFuncCall("sum", col("amount")), "total")},
			want:       []string{"region", "Q1_total", "Q2_total"},
		},
		{
			name: "several aggregates",
			aggregates: []core.Expr{
				core.Aliased(core.NewFuncCall("sum", col("amount")), "total"),
				core.NewFuncCall("max", col("amount")),
			},
			want: []string{"region", "Q1_total", "Q1_max(amount)", "Q2_total", "Q2_max(amount)"},
		},
		{
			name:       "implicit groups keep source order",
			aggregates: []core.Expr{core.NewFuncCall("sum", col("amount"))},
			source:     "sales_by_rep",
			want:       []string{"region", "rep", "Q1", "Q2"},
		},
		{
			name:       "explicit groups",
			aggregates: []core.Expr{core.NewFuncCall("sum", col("amount"))},
			groups:     []string{"rep"},
			source:     "sales_by_rep",
			want:       []string{"rep", "Q1", "Q2"},
		},
		{
			name:       "column aliases",
			aggregates: []core.Expr{core.NewFuncCall("sum", col("amount"))},
			aliases:    []string{"r", "first"},
			want:       []string{"r", "first", "Q2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := salesPivot()
			ref.Aggregates = tt.aggregates
			ref.Groups = tt.groups
			ref.ColumnAliases = tt.aliases
			if tt.source != "" {
				ref.Source = &core.BaseTableRef{Name: tt.source}
			}

			sub, scope, err := bindPivot(t, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sub.Columns())

			binding, ok := scope.Lookup(DefaultAlias)
			require.True(t, ok)
			assert.Equal(t, tt.want, binding.Columns)
		})
	}
}

func TestBindPivot_EnumExpansion(t *testing.T) {
	ref := &core.PivotRef{
		Source:     &core.BaseTableRef{Name: "people"},
		Pivots:     []core.PivotColumn{{Expressions: []core.Expr{col("feeling")}, EnumName: "mood"}},
		Aggregates: []core.Expr{&core.FuncCall{Name: "count", Star: true}},
		Alias:      "p",
	}

	sub, _, err := bindPivot(t, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "sad", "ok", "happy"}, sub.Columns())
}

func TestBindPivot_EnumErrors(t *testing.T) {
	tests := []struct {
		name     string
		enum     string
		wantMsg  string
		notFound bool
	}{
		{"not an enum", "label", `Pivot must reference an ENUM type: "label" is of type "VARCHAR"`, false},
		{"unknown type", "colour", `Pivot must reference an ENUM type: type "colour" does not exist`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := &core.PivotRef{
				Source:     &core.BaseTableRef{Name: "people"},
				Pivots:     []core.PivotColumn{{Expressions: []core.Expr{col("feeling")}, EnumName: tt.enum}},
				Aggregates: []core.Expr{&core.FuncCall{Name: "count", Star: true}},
			}
			_, scope, err := bindPivot(t, ref)

			var typeErr *TypeError
			require.True(t, errors.As(err, &typeErr))
			assert.Equal(t, tt.enum, typeErr.Name)
			assert.Equal(t, tt.wantMsg, typeErr.Msg)
			assert.Equal(t, tt.notFound, errors.Is(err, binder.ErrNotFound))
			assert.Empty(t, scope.Bindings())
		})
	}
}

func TestBindPivot_SemanticErrors(t *testing.T) {
	subquery := &core.SubqueryExpr{Select: &core.SelectNode{
		SelectList: []core.Expr{core.NewFuncCall("max", col("amount"))},
		From:       &core.BaseTableRef{Name: "sales"},
	}}
	window := &core.FuncCall{Name: "sum", Args: []core.Expr{col("amount")}, Window: &core.WindowSpec{PartitionBy: []core.Expr{col("region")}}}

	tests := []struct {
		name    string
		mutate  func(ref *core.PivotRef)
		wantMsg string
	}{
		{
			name:    "aggregate is not a function",
			mutate:  func(ref *core.PivotRef) { ref.Aggregates = []core.Expr{col("amount")} },
			wantMsg: "Pivot expression must be an aggregate",
		},
		{
			name:    "aggregate with subquery",
			mutate:  func(ref *core.PivotRef) { ref.Aggregates = []core.Expr{core.NewFuncCall("sum", subquery)} },
			wantMsg: "Pivot expression cannot contain subqueries",
		},
		{
			name:    "window aggregate",
			mutate:  func(ref *core.PivotRef) { ref.Aggregates = []core.Expr{window} },
			wantMsg: "Pivot expression cannot contain window functions",
		},
		{
			name: "qualified column in aggregate",
			mutate: func(ref *core.PivotRef) {
				ref.Aggregates = []core.Expr{core.NewFuncCall("sum", &core.ColumnRef{Table: "sales", Column: "amount"})}
			},
			wantMsg: "PIVOT expression cannot contain qualified columns",
		},
		{
			name: "qualified pivot expression",
			mutate: func(ref *core.PivotRef) {
				ref.Pivots[0].Expressions = []core.Expr{&core.ColumnRef{Table: "sales", Column: "quarter"}}
			},
			wantMsg: "PIVOT expression cannot contain qualified columns",
		},
		{
			name:    "duplicate value",
			mutate:  func(ref *core.PivotRef) { ref.Pivots[0].Entries = entries("Q1", "Q2", "Q1") },
			wantMsg: `The value "Q1" was specified multiple times in the IN clause`,
		},
		{
			name: "tuple arity",
			mutate: func(ref *core.PivotRef) {
				ref.Pivots[0].Entries = []core.PivotColumnEntry{{Values: []core.Value{core.StringValue("Q1"), core.StringValue("A")}}}
			},
			wantMsg: "PIVOT IN list - inconsistent amount of rows - expected 1 but got 2",
		},
		{
			name:    "empty IN list",
			mutate:  func(ref *core.PivotRef) { ref.Pivots[0].Entries = nil },
			wantMsg: "PIVOT IN list cannot be empty",
		},
		{
			name:    "star entry",
			mutate:  func(ref *core.PivotRef) { ref.Pivots[0].Entries = []core.PivotColumnEntry{{Star: true}} },
			wantMsg: "PIVOT IN list cannot contain columns or star expressions",
		},
		{
			name: "composite key",
			mutate: func(ref *core.PivotRef) {
				ref.Pivots[0].Expressions = []core.Expr{col("quarter"), col("region")}
				ref.Pivots[0].Entries = []core.PivotColumnEntry{{Values: []core.Value{core.StringValue("Q1"), core.StringValue("A")}}}
			},
			wantMsg: "PIVOT on 2 expressions is not supported - combine them into a single expression",
		},
		{
			name: "two pivot columns",
			mutate: func(ref *core.PivotRef) {
				ref.Pivots = append(ref.Pivots, core.PivotColumn{Expressions: []core.Expr{col("region")}, Entries: entries("A", "B")})
			},
			wantMsg: "PIVOT on 2 expressions is not supported - combine them into a single expression",
		},
		{
			name:    "column limit",
			mutate:  func(ref *core.PivotRef) { ref.Pivots[0].Entries = numberedEntries(MaxPivotColumns) },
			wantMsg: "Pivot column limit of 10000 exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := salesPivot()
			tt.mutate(ref)

			_, scope, err := bindPivot(t, ref)
			var semErr *SemanticError
			require.True(t, errors.As(err, &semErr), "got %v", err)
			assert.Equal(t, tt.wantMsg, semErr.Msg)
			assert.Empty(t, scope.Bindings())
		})
	}
}

func TestRewritePivot_AdmitsBelowLimit(t *testing.T) {
	ref := salesPivot()
	ref.Pivots[0].Entries = numberedEntries(MaxPivotColumns - 1)

	node, elements, err := rewritePivot(testCatalog(), ref, []string{"region", "quarter", "amount"})
	require.NoError(t, err)
	assert.Len(t, elements, MaxPivotColumns-1)
	assert.Len(t, node.SelectList, 1+MaxPivotColumns-1)
}

func TestStages_InternalErrors(t *testing.T) {
	state := &bindState{internalPivotNames: []string{"a", "b"}}
	_, err := stageThree(state, &core.SelectNode{})
	var internalErr *InternalError
	require.True(t, errors.As(err, &internalErr))

	state = &bindState{internalMapNames: []string{"__internal_pivot_map1"}}
	composite := PivotValueElement{Values: []core.Value{core.StringValue("Q1"), core.StringValue("A")}, Name: "Q1_A"}
	_, err = stageFour(state, &core.SelectNode{}, []PivotValueElement{composite})
	require.True(t, errors.As(err, &internalErr))
	assert.Contains(t, internalErr.Error(), "Q1_A")
}

func TestBindPivot_FailedRegistrationLeavesScope(t *testing.T) {
	b, scope := newTestBinder(t)

	ref := salesPivot()
	ref.Alias = "p"
	_, err := b.Bind(scope, ref)
	require.NoError(t, err)
	before := scope.Bindings()

	_, err = b.Bind(scope, salesPivot())
	require.NoError(t, err)
	require.Len(t, scope.Bindings(), len(before)+1)
	before = scope.Bindings()

	again := salesPivot()
	again.Alias = "P"
	_, err = b.Bind(scope, again)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Duplicate alias")
	assert.Equal(t, before, scope.Bindings())

	bad := salesPivot()
	bad.Alias = "q"
	bad.ColumnAliases = []string{"a", "b", "c", "d"}
	_, err = b.Bind(scope, bad)
	require.Error(t, err)
	assert.Equal(t, before, scope.Bindings())
}

func TestBindPivot_MissingSource(t *testing.T) {
	ref := salesPivot()
	ref.Source = nil
	_, scope, err := bindPivot(t, ref)

	var internalErr *InternalError
	require.True(t, errors.As(err, &internalErr))
	assert.Empty(t, scope.Bindings())
}

func TestBindPivot_UnknownSource(t *testing.T) {
	ref := salesPivot()
	ref.Source = &core.BaseTableRef{Name: "nope"}
	_, _, err := bindPivot(t, ref)
	assert.ErrorIs(t, err, binder.ErrNotFound)
}

func TestBindPivot_UnknownGroup(t *testing.T) {
	ref := salesPivot()
	ref.Groups = []string{"nope"}
	_, scope, err := bindPivot(t, ref)

	var resErr *binder.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Empty(t, scope.Bindings())
}
