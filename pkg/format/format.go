package format

import (
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// Select renders a query node as multi-line SQL.
func Select(node *core.SelectNode) string {
	p := newPrinter()
	p.formatSelect(node)
	return p.String()
}

// CompactSelect renders a query node on a single line.
func CompactSelect(node *core.SelectNode) string {
	return compactSelect(node)
}

// Expr renders an expression on a single line, without its alias.
func Expr(e core.Expr) string {
	p := newCompactPrinter()
	p.formatExpr(e)
	return p.String()
}

// TableRef renders a table reference on a single line.
func TableRef(ref core.TableRef) string {
	p := newCompactPrinter()
	p.formatTableRef(ref)
	return p.String()
}

// Name returns the output column name of a select-list entry: its alias,
// else the referenced column, else the rendered expression.
func Name(e core.Expr) string {
	if alias := e.GetAlias(); alias != "" {
		return alias
	}
	if ref, ok := e.(*core.ColumnRef); ok {
		return ref.Column
	}
	return Expr(e)
}
