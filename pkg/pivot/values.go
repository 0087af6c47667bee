package pivot

import (
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// MaxPivotColumns bounds the number of value combinations a PIVOT may
// produce. Declarations reaching it are rejected.
const MaxPivotColumns = 10000

// PivotValueElement is one combination of values across all pivot
// columns. It becomes one output column.
type PivotValueElement struct {
	Values []core.Value
	Name   string
}

// EnumeratePivotValues returns every combination of entries across the
// pivot columns, depth-first in declaration order. Each element's name
// joins each level's alias, or its values, with underscores.
//
// The combination count is checked against MaxPivotColumns before any
// element is built.
func EnumeratePivotValues(pivots []core.PivotColumn) ([]PivotValueElement, error) {
	if len(pivots) == 0 {
		return nil, nil
	}
	for _, p := range pivots {
		if len(p.Entries) == 0 {
			return nil, nil
		}
	}

	total := 1
	for _, p := range pivots {
		total *= len(p.Entries)
		if total >= MaxPivotColumns {
			return nil, semanticf(nil, "Pivot column limit of %d exceeded", MaxPivotColumns)
		}
	}

	out := make([]PivotValueElement, 0, total)
	constructPivots(pivots, 0, PivotValueElement{}, &out)
	return out, nil
}

func constructPivots(pivots []core.PivotColumn, level int, current PivotValueElement, out *[]PivotValueElement) {
	last := level+1 == len(pivots)
	for _, entry := range pivots[level].Entries {
		next := PivotValueElement{
			Values: append(append(make([]core.Value, 0, len(current.Values)+len(entry.Values)), current.Values...), entry.Values...),
		}

		name := entry.Alias
		if name == "" {
			parts := make([]string, len(entry.Values))
			for i, v := range entry.Values {
				parts[i] = v.String()
			}
			name = strings.Join(parts, "_")
		}
		if current.Name != "" {
			next.Name = current.Name + "_" + name
		} else {
			next.Name = name
		}

		if last {
			*out = append(*out, next)
		} else {
			constructPivots(pivots, level+1, next, out)
		}
	}
}

// valueSet detects repeated IN-list entries. Values of different kinds
// are distinct.
type valueSet map[string]struct{}

// insert adds v and reports whether it was not already present.
func (s valueSet) insert(v core.Value) bool {
	key := v.Key()
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// entryValue is the value an IN-list entry is deduplicated by: its only
// value, or the tuple of all of them.
func entryValue(entry core.PivotColumnEntry) core.Value {
	if len(entry.Values) == 1 {
		return entry.Values[0]
	}
	return core.ListValue(entry.Values...)
}
