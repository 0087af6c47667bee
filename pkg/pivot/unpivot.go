package pivot

import (
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// rewriteUnpivot validates an UNPIVOT declaration and builds its query:
//
//	SELECT unhandled..., unnest([names]) AS key, unnest(list_value(cols...)) AS value, ...
//	FROM source
//
// Unless nulls are included, an IS NOT NULL check on every value column
// is conjoined to where and returned; it must be applied by a level
// wrapping the returned node, after the unnest.
func rewriteUnpivot(ref *core.PivotRef, allColumns []string, where core.Expr) (*core.SelectNode, core.Expr, error) {
	if len(ref.Groups) > 0 {
		return nil, nil, semanticf(ref, "UNPIVOT cannot be combined with GROUP BY")
	}
	if len(ref.Pivots) != 1 {
		return nil, nil, semanticf(ref, "UNPIVOT requires exactly one ON clause - got %d", len(ref.Pivots))
	}
	unpivot := &ref.Pivots[0]
	if len(unpivot.UnpivotNames) != 1 {
		return nil, nil, semanticf(ref, "UNPIVOT requires exactly one NAME column - got %d", len(unpivot.UnpivotNames))
	}

	entries := expandStarEntries(unpivot.Entries, allColumns)
	if len(entries) == 0 {
		return nil, nil, semanticf(ref, "UNPIVOT IN list cannot be empty")
	}
	arity := len(entries[0].Values)
	for _, entry := range entries {
		if len(entry.Values) == 0 {
			return nil, nil, semanticf(ref, "UNPIVOT IN list entry must reference at least one column")
		}
		if len(entry.Values) != arity {
			return nil, nil, semanticf(ref, "UNPIVOT IN list - inconsistent amount of columns - expected %d but got %d", arity, len(entry.Values))
		}
	}

	if len(ref.UnpivotNames) != arity {
		return nil, nil, semanticf(ref, "UNPIVOT name count mismatch - got %d names but %d expressions", len(ref.UnpivotNames), arity)
	}

	handled := newColumnSet()
	for _, entry := range entries {
		for _, v := range entry.Values {
			name := v.String()
			if handled.contains(name) {
				return nil, nil, semanticf(ref, "Column %q is referenced by more than one UNPIVOT entry", name)
			}
			handled.add(name)
		}
	}

	// Source spelling of every handled column, by folded name.
	sourceNames := make(map[string]string)
	var passThrough []core.Expr
	for _, c := range allColumns {
		if !handled.contains(c) {
			passThrough = append(passThrough, core.NewColumnRef(c))
			continue
		}
		sourceNames[binder.Fold(c)] = c
		handled.remove(c)
	}
	if handled.len() > 0 {
		return nil, nil, semanticf(ref, "Column %q referenced in UNPIVOT but no matching entry was found in the table", handled.list()[0])
	}

	node := &core.SelectNode{SelectList: passThrough, From: ref.Source}
	ref.Source = nil

	keys := make([]core.Value, len(entries))
	for i, entry := range entries {
		name := entry.Alias
		if name == "" {
			parts := make([]string, len(entry.Values))
			for j, v := range entry.Values {
				parts[j] = sourceNames[binder.Fold(v.String())]
			}
			name = strings.Join(parts, "_")
		}
		keys[i] = core.StringValue(name)
	}
	keyList := core.NewFuncCall("unnest", core.NewConstant(core.ListValue(keys...)))
	node.SelectList = append(node.SelectList, core.Aliased(keyList, unpivot.UnpivotNames[0]))

	for pos, valueName := range ref.UnpivotNames {
		cols := make([]core.Expr, len(entries))
		for i, entry := range entries {
			cols[i] = core.NewColumnRef(sourceNames[binder.Fold(entry.Values[pos].String())])
		}
		values := core.NewFuncCall("unnest", core.NewFuncCall("list_value", cols...))
		node.SelectList = append(node.SelectList, core.Aliased(values, valueName))

		if !ref.IncludeNulls {
			where = core.And(where, core.NewIsNotNull(core.NewColumnRef(valueName)))
		}
	}

	return node, where, nil
}

// expandStarEntries replaces every star entry with one entry per source
// column, named after the column.
func expandStarEntries(entries []core.PivotColumnEntry, allColumns []string) []core.PivotColumnEntry {
	out := make([]core.PivotColumnEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Star {
			out = append(out, entry)
			continue
		}
		for _, c := range allColumns {
			out = append(out, core.PivotColumnEntry{Values: []core.Value{core.StringValue(c)}, Alias: c})
		}
	}
	return out
}
