package pivot

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnSet(t *testing.T) {
	set := newColumnSet()
	set.add("Amount")
	set.add("quarter")
	set.add("AMOUNT")

	assert.Equal(t, 2, set.len())
	assert.True(t, set.contains("amount"))
	assert.Equal(t, []string{"Amount", "quarter"}, set.list())

	set.remove("QUARTER")
	assert.False(t, set.contains("quarter"))
	assert.Equal(t, []string{"Amount"}, set.list())
}

func TestExtractColumns(t *testing.T) {
	set := newColumnSet()
	expr := core.NewFuncCall("sum", &core.CaseExpr{
		Checks: []core.CaseCheck{{
			When: &core.Comparison{Op: core.CompareEqual, Left: core.NewColumnRef("kind"), Right: core.NewConstant(core.StringValue("x"))},
			Then: core.NewColumnRef("amount"),
		}},
	})
	require.NoError(t, extractColumns(expr, set))
	assert.Equal(t, []string{"kind", "amount"}, set.list())

	qualified := &core.ColumnRef{Table: "s", Column: "amount"}
	err := extractColumns(core.NewFuncCall("sum", qualified), newColumnSet())
	var semErr *SemanticError
	require.True(t, errors.As(err, &semErr))
	assert.Equal(t, "PIVOT expression cannot contain qualified columns", semErr.Msg)
	assert.Same(t, qualified, semErr.In)
}

func TestNameGen(t *testing.T) {
	var g nameGen
	assert.Equal(t, "__internal_pivot_group1", g.next(groupPrefix))
	assert.Equal(t, "__internal_pivot_group2", g.next(groupPrefix))
	assert.Equal(t, "__internal_pivot_map1", g.next(mapPrefix))

	var fresh nameGen
	assert.Equal(t, "__internal_pivot_group1", fresh.next(groupPrefix))
}
