// Package core defines the query-tree model shared by the pivotsql packages.
//
// This package contains:
//   - Expression nodes (ColumnRef, Constant, FuncCall, Conjunction, ...)
//   - Query nodes (SelectNode) and table references (BaseTableRef, SubqueryRef)
//   - The PIVOT/UNPIVOT declaration (PivotRef, PivotColumn, PivotColumnEntry)
//   - Typed literal values (Value)
//   - Generic traversal and deep-copy helpers (Children, Walk, CopyTableRef)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
