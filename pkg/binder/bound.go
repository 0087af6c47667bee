package binder

import "github.com/leapstack-labs/pivotsql/pkg/core"

// BoundTableRef is a table reference after binding.
type BoundTableRef interface {
	// Columns returns the output column names in order.
	Columns() []string
}

// BoundBaseTable is a catalog table after binding.
type BoundBaseTable struct {
	Index  int
	Schema string
	Name   string
	Alias  string
	Names  []string
}

// Columns implements BoundTableRef.
func (t *BoundBaseTable) Columns() []string { return t.Names }

// BoundSelect is a query level after binding.
type BoundSelect struct {
	Node   *core.SelectNode
	Names  []string      // Output column names
	Source BoundTableRef // Bound FROM clause, nil when absent
	Scope  *Scope        // Scope holding the FROM bindings
}

// Columns implements BoundTableRef.
func (s *BoundSelect) Columns() []string { return s.Names }

// BoundSubquery is a derived table after binding.
type BoundSubquery struct {
	Index         int
	Alias         string
	ColumnAliases []string
	Select        *BoundSelect
}

// Columns implements BoundTableRef. Column aliases replace the leading
// output names of the query.
func (s *BoundSubquery) Columns() []string {
	return applyAliases(s.Select.Columns(), s.ColumnAliases)
}

func applyAliases(names, aliases []string) []string {
	out := append([]string(nil), names...)
	for i, alias := range aliases {
		if i < len(out) {
			out[i] = alias
		}
	}
	return out
}
