package core

// ---------- Table Reference Types ----------

// BaseTableRef represents a catalog table reference.
type BaseTableRef struct {
	Schema string
	Name   string
	Alias  string
}

func (*BaseTableRef) node()         {}
func (*BaseTableRef) tableRefNode() {}

// SubqueryRef represents a subquery in FROM clause.
type SubqueryRef struct {
	Select        *SelectNode
	Alias         string
	ColumnAliases []string // AS alias(c1, c2, ...)
}

func (*SubqueryRef) node()         {}
func (*SubqueryRef) tableRefNode() {}

// ---------- PIVOT/UNPIVOT Table References ----------

// PivotRef is a PIVOT or UNPIVOT declaration used as a table reference.
//
// A PivotRef with at least one aggregate is a PIVOT; without aggregates
// it is an UNPIVOT, which takes exactly one PivotColumn and no Groups.
type PivotRef struct {
	Source        TableRef      // The source table/subquery
	Pivots        []PivotColumn // ON clause, one entry per pivot column
	Groups        []string      // Explicit row-grouping columns (PIVOT only)
	Aggregates    []Expr        // USING clause (PIVOT only)
	Alias         string        // Optional alias
	ColumnAliases []string      // Optional per-output-column aliases
	UnpivotNames  []string      // VALUE column names (UNPIVOT only)
	IncludeNulls  bool          // INCLUDE NULLS (UNPIVOT only)
}

func (*PivotRef) node()         {}
func (*PivotRef) tableRefNode() {}

// IsUnpivot reports whether the declaration is an UNPIVOT.
func (p *PivotRef) IsUnpivot() bool { return len(p.Aggregates) == 0 }

// PivotColumn is one ON-clause entry.
// Either Entries lists the pivot values explicitly, or EnumName names an
// enumerated type whose domain supplies them.
type PivotColumn struct {
	Expressions  []Expr             // Pivot expressions (PIVOT only)
	UnpivotNames []string           // NAME column (UNPIVOT only)
	Entries      []PivotColumnEntry // IN list
	EnumName     string             // IN <enum type>
}

// PivotColumnEntry is one element of an IN list.
// For PIVOT, Values holds one literal per pivot expression.
// For UNPIVOT, Values holds source column names, or Star is set to
// take every column of the source.
type PivotColumnEntry struct {
	Values []Value
	Star   bool
	Alias  string
}
