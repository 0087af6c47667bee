package pivot

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/leapstack-labs/pivotsql/pkg/format"
)

// rewritePivot validates a PIVOT declaration and builds its four-level
// query tree. allColumns are the output columns of the bound source.
// The declaration is consumed: its source and expressions move into the
// returned tree.
func rewritePivot(catalog binder.Catalog, ref *core.PivotRef, allColumns []string) (*core.SelectNode, []PivotValueElement, error) {
	if len(ref.Pivots) == 0 {
		return nil, nil, semanticf(ref, "PIVOT requires at least one ON column")
	}

	handled := newColumnSet()
	for _, agg := range ref.Aggregates {
		if _, ok := agg.(*core.FuncCall); !ok {
			return nil, nil, semanticf(agg, "Pivot expression must be an aggregate")
		}
		if core.HasSubquery(agg) {
			return nil, nil, semanticf(agg, "Pivot expression cannot contain subqueries")
		}
		if core.IsWindow(agg) {
			return nil, nil, semanticf(agg, "Pivot expression cannot contain window functions")
		}
		if err := extractColumns(agg, handled); err != nil {
			return nil, nil, err
		}
	}

	pivotExprs := 0
	for i := range ref.Pivots {
		pivot := &ref.Pivots[i]
		if pivot.EnumName != "" {
			if err := expandEnum(catalog, ref, pivot); err != nil {
				return nil, nil, err
			}
		}
		if len(pivot.Expressions) == 0 {
			return nil, nil, semanticf(ref, "PIVOT ON clause requires an expression")
		}
		for _, e := range pivot.Expressions {
			if err := extractColumns(e, handled); err != nil {
				return nil, nil, err
			}
		}
		pivotExprs += len(pivot.Expressions)
		if err := checkEntries(ref, pivot); err != nil {
			return nil, nil, err
		}
	}

	elements, err := EnumeratePivotValues(ref.Pivots)
	if err != nil {
		return nil, nil, err
	}

	// Stage 4 looks up one key per map, so every pivot value must be a
	// single literal.
	if pivotExprs > 1 {
		return nil, nil, semanticf(ref, "PIVOT on %d expressions is not supported - combine them into a single expression", pivotExprs)
	}

	state := &bindState{}
	stage1, err := stageOne(state, ref, allColumns, handled)
	if err != nil {
		return nil, nil, err
	}
	stage2 := stageTwo(state, stage1)
	stage3, err := stageThree(state, stage2)
	if err != nil {
		return nil, nil, err
	}
	stage4, err := stageFour(state, stage3, elements)
	if err != nil {
		return nil, nil, err
	}
	return stage4, elements, nil
}

// expandEnum appends one entry per domain value of the column's enum
// type, in ordinal order.
func expandEnum(catalog binder.Catalog, ref *core.PivotRef, pivot *core.PivotColumn) error {
	info, err := catalog.LookupType(pivot.EnumName)
	if err != nil {
		if errors.Is(err, binder.ErrNotFound) {
			return &TypeError{Name: pivot.EnumName, Msg: fmt.Sprintf("Pivot must reference an ENUM type: type %q does not exist", pivot.EnumName), Err: err}
		}
		return &TypeError{Name: pivot.EnumName, Msg: "Pivot ENUM lookup failed", Err: err}
	}
	if info.Kind != binder.TypeEnum {
		return &TypeError{
			Name: pivot.EnumName,
			Msg:  fmt.Sprintf("Pivot must reference an ENUM type: %q is of type %q", pivot.EnumName, info.SQLType),
		}
	}
	for _, v := range info.EnumValues {
		pivot.Entries = append(pivot.Entries, core.PivotColumnEntry{
			Values: []core.Value{core.StringValue(v)},
			Alias:  v,
		})
	}
	return nil
}

// checkEntries rejects empty IN lists, star entries, repeated values and
// entries whose arity differs from the expression count.
func checkEntries(ref *core.PivotRef, pivot *core.PivotColumn) error {
	if len(pivot.Entries) == 0 {
		return semanticf(ref, "PIVOT IN list cannot be empty")
	}
	seen := make(valueSet)
	for _, entry := range pivot.Entries {
		if entry.Star {
			return semanticf(ref, "PIVOT IN list cannot contain columns or star expressions")
		}
		val := entryValue(entry)
		if !seen.insert(val) {
			return semanticf(ref, "The value %q was specified multiple times in the IN clause", val.String())
		}
		if len(entry.Values) != len(pivot.Expressions) {
			return semanticf(ref, "PIVOT IN list - inconsistent amount of rows - expected %d but got %d",
				len(pivot.Expressions), len(entry.Values))
		}
	}
	return nil
}

// stageOne computes one row per group and pivot value:
// SELECT groups, pivots, aggregates FROM source GROUP BY groups, pivots.
func stageOne(state *bindState, ref *core.PivotRef, allColumns []string, handled *columnSet) (*core.SelectNode, error) {
	node := &core.SelectNode{From: ref.Source}
	ref.Source = nil

	addGroup := func(e core.Expr) {
		node.GroupBy = append(node.GroupBy, core.Ordinal(len(node.SelectList)+1))
		node.SelectList = append(node.SelectList, e)
	}

	if len(ref.Groups) == 0 {
		// Every source column the pivot does not consume is a row group.
		for _, c := range allColumns {
			if !handled.contains(c) {
				addGroup(core.NewColumnRef(c))
			}
		}
	} else {
		for _, g := range ref.Groups {
			addGroup(core.NewColumnRef(g))
		}
	}

	for _, e := range node.SelectList {
		if _, ok := e.(*core.ColumnRef); !ok {
			return nil, internalf("Unexpected child of pivot source - not a ColumnRef")
		}
		state.groupNames = append(state.groupNames, format.Name(e))
		if e.GetAlias() == "" {
			e.SetAlias(state.names.next(groupPrefix))
		}
		state.internalGroupNames = append(state.internalGroupNames, e.GetAlias())
	}

	for i := range ref.Pivots {
		for _, e := range ref.Pivots[i].Expressions {
			if e.GetAlias() == "" {
				e.SetAlias(state.names.next(refPrefix))
			}
			state.pivotRefNames = append(state.pivotRefNames, e.GetAlias())
			addGroup(e)
		}
		ref.Pivots[i].Expressions = nil
	}

	for _, agg := range ref.Aggregates {
		state.aggregateNames = append(state.aggregateNames, format.Name(agg))
		state.aggregateAliases = append(state.aggregateAliases, agg.GetAlias())
		internal := state.names.next(aggregatePrefix)
		state.internalAggregateNames = append(state.internalAggregateNames, internal)
		node.SelectList = append(node.SelectList, core.Aliased(agg, internal))
	}
	ref.Aggregates = nil

	return node, nil
}

// groupRefs re-selects the internal group columns of the level below.
func groupRefs(state *bindState, aliases []string) []core.Expr {
	out := make([]core.Expr, len(state.internalGroupNames))
	for i, name := range state.internalGroupNames {
		out[i] = core.Aliased(core.NewColumnRef(name), aliases[i])
	}
	return out
}

// stageTwo collects one aligned pair of lists per group:
// SELECT groups, list(aggregates), list(pivots) FROM stage1 GROUP BY groups.
func stageTwo(state *bindState, stage1 *core.SelectNode) *core.SelectNode {
	node := &core.SelectNode{
		SelectList: groupRefs(state, state.internalGroupNames),
		From:       &core.SubqueryRef{Select: stage1},
	}
	for i := range state.internalGroupNames {
		node.GroupBy = append(node.GroupBy, core.Ordinal(i+1))
	}

	for _, name := range state.internalAggregateNames {
		list := core.NewFuncCall("list", core.NewColumnRef(name))
		node.SelectList = append(node.SelectList, core.Aliased(list, name))
	}
	for _, ref := range state.pivotRefNames {
		name := state.names.next(listPrefix)
		list := core.NewFuncCall("list", core.NewColumnRef(ref))
		node.SelectList = append(node.SelectList, core.Aliased(list, name))
		state.internalPivotNames = append(state.internalPivotNames, name)
	}
	return node
}

// stageThree turns the lists into one map per aggregate:
// SELECT groups, map(pivot list, aggregate list) FROM stage2.
func stageThree(state *bindState, stage2 *core.SelectNode) (*core.SelectNode, error) {
	if len(state.internalPivotNames) != 1 {
		return nil, internalf("expected one pivot list, got %d", len(state.internalPivotNames))
	}

	node := &core.SelectNode{
		SelectList: groupRefs(state, state.internalGroupNames),
		From:       &core.SubqueryRef{Select: stage2},
	}
	keys := state.internalPivotNames[0]
	for _, agg := range state.internalAggregateNames {
		name := state.names.next(mapPrefix)
		m := core.NewFuncCall("map", core.NewColumnRef(keys), core.NewColumnRef(agg))
		node.SelectList = append(node.SelectList, core.Aliased(m, name))
		state.internalMapNames = append(state.internalMapNames, name)
	}
	return node, nil
}

// stageFour reads each pivot value out of every map and restores the
// group display names:
// SELECT groups, array_extract(map_extract(map, value), 1) AS name, ... FROM stage3.
func stageFour(state *bindState, stage3 *core.SelectNode, elements []PivotValueElement) (*core.SelectNode, error) {
	node := &core.SelectNode{
		SelectList: groupRefs(state, state.groupNames),
		From:       &core.SubqueryRef{Select: stage3},
	}
	for _, element := range elements {
		if len(element.Values) != 1 {
			return nil, internalf("composite pivot value %q reached map extraction", element.Name)
		}
		for i, m := range state.internalMapNames {
			lookup := core.NewFuncCall("map_extract", core.NewColumnRef(m), core.NewConstant(element.Values[0]))
			extract := core.NewFuncCall("array_extract", lookup, core.NewConstant(core.IntegerValue(1)))
			node.SelectList = append(node.SelectList, core.Aliased(extract, state.outputName(element, i)))
		}
	}
	return node, nil
}
