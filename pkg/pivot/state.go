package pivot

import "strconv"

// Prefixes of synthesized column names.
const (
	groupPrefix     = "__internal_pivot_group"
	refPrefix       = "__internal_pivot_ref"
	aggregatePrefix = "__internal_pivot_aggregate"
	listPrefix      = "__internal_pivot_name"
	mapPrefix       = "__internal_pivot_map"
)

// nameGen hands out synthesized names, numbered from 1 per prefix.
type nameGen struct {
	counters map[string]int
}

func (g *nameGen) next(prefix string) string {
	if g.counters == nil {
		g.counters = make(map[string]int)
	}
	g.counters[prefix]++
	return prefix + strconv.Itoa(g.counters[prefix])
}

// bindState carries names from one pivot stage to the next.
// Parallel slices share an index.
type bindState struct {
	names nameGen

	groupNames         []string // display names of the row groups
	internalGroupNames []string

	aggregateNames         []string // alias, or rendered expression
	aggregateAliases       []string // user alias, "" when absent
	internalAggregateNames []string

	pivotRefNames      []string // stage 1 aliases of the pivot expressions
	internalPivotNames []string // stage 2 lists of pivot values
	internalMapNames   []string // stage 3 maps, one per aggregate
}

// outputName names the column holding aggregate i for a pivot value.
func (s *bindState) outputName(element PivotValueElement, i int) string {
	if len(s.aggregateNames) == 1 && s.aggregateAliases[0] == "" {
		return element.Name
	}
	return element.Name + "_" + s.aggregateNames[i]
}
