package core

// Node is the base interface for all query-tree nodes.
type Node interface {
	node()
}

// Expr is the interface implemented by expression nodes.
// Every expression may carry an alias, which is how select-list
// entries are named.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
	GetAlias() string
	SetAlias(alias string)
}

// TableRef is the interface implemented by FROM-clause entries.
type TableRef interface {
	Node
	tableRefNode() // Marker method to distinguish table references
}

// ExprInfo holds the fields shared by every expression node.
type ExprInfo struct {
	Alias string
}

// GetAlias returns the alias of the expression, or "" if it has none.
func (e *ExprInfo) GetAlias() string { return e.Alias }

// SetAlias replaces the alias of the expression.
func (e *ExprInfo) SetAlias(alias string) { e.Alias = alias }
