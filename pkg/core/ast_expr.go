package core

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	ExprInfo
	Table  string // optional table/alias qualifier
	Column string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// IsQualified reports whether the reference names a table or alias.
func (c *ColumnRef) IsQualified() bool { return c.Table != "" }

// Constant represents a literal value.
type Constant struct {
	ExprInfo
	Value Value
}

func (*Constant) node()     {}
func (*Constant) exprNode() {}

// FuncCall represents a scalar or aggregate function call.
type FuncCall struct {
	ExprInfo
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool        // COUNT(*)
	Window   *WindowSpec // OVER clause
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// WindowSpec represents a window specification (OVER clause).
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// OrderByItem represents an item in an ORDER BY list.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// ConjunctionType is the boolean connective of a Conjunction.
type ConjunctionType string

// ConjunctionType constants.
const (
	ConjunctionAnd ConjunctionType = "AND"
	ConjunctionOr  ConjunctionType = "OR"
)

// Conjunction represents an AND/OR over two or more operands.
type Conjunction struct {
	ExprInfo
	Op   ConjunctionType
	Args []Expr
}

func (*Conjunction) node()     {}
func (*Conjunction) exprNode() {}

// CompareOp is a comparison operator.
type CompareOp string

// CompareOp constants.
const (
	CompareEqual        CompareOp = "="
	CompareNotEqual     CompareOp = "<>"
	CompareLess         CompareOp = "<"
	CompareGreater      CompareOp = ">"
	CompareLessEqual    CompareOp = "<="
	CompareGreaterEqual CompareOp = ">="
)

// Comparison represents a binary comparison.
type Comparison struct {
	ExprInfo
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (*Comparison) node()     {}
func (*Comparison) exprNode() {}

// OperatorType identifies a prefix/postfix operator.
type OperatorType string

// OperatorType constants.
const (
	OperatorIsNull    OperatorType = "IS NULL"
	OperatorIsNotNull OperatorType = "IS NOT NULL"
	OperatorNot       OperatorType = "NOT"
)

// OperatorExpr represents a unary operator such as IS NOT NULL.
type OperatorExpr struct {
	ExprInfo
	Op   OperatorType
	Args []Expr
}

func (*OperatorExpr) node()     {}
func (*OperatorExpr) exprNode() {}

// CaseExpr represents a searched CASE expression.
type CaseExpr struct {
	ExprInfo
	Checks []CaseCheck
	Else   Expr
}

func (*CaseExpr) node()     {}
func (*CaseExpr) exprNode() {}

// CaseCheck is a single WHEN ... THEN ... arm.
type CaseCheck struct {
	When Expr
	Then Expr
}

// SubqueryExpr represents a scalar subquery used as an expression.
type SubqueryExpr struct {
	ExprInfo
	Select *SelectNode
}

func (*SubqueryExpr) node()     {}
func (*SubqueryExpr) exprNode() {}

// StarExpr represents * or t.* in a select list.
type StarExpr struct {
	ExprInfo
	Table string // optional table qualifier for t.*
}

func (*StarExpr) node()     {}
func (*StarExpr) exprNode() {}

// ---------- Constructors ----------

// NewColumnRef returns an unqualified column reference.
func NewColumnRef(column string) *ColumnRef {
	return &ColumnRef{Column: column}
}

// NewConstant returns a constant expression holding v.
func NewConstant(v Value) *Constant {
	return &Constant{Value: v}
}

// NewFuncCall returns a call of name with the given arguments.
func NewFuncCall(name string, args ...Expr) *FuncCall {
	return &FuncCall{Name: name, Args: args}
}

// NewIsNotNull returns "expr IS NOT NULL".
func NewIsNotNull(expr Expr) *OperatorExpr {
	return &OperatorExpr{Op: OperatorIsNotNull, Args: []Expr{expr}}
}

// And conjoins two predicates. A nil operand yields the other one.
func And(left, right Expr) Expr {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &Conjunction{Op: ConjunctionAnd, Args: []Expr{left, right}}
}

// Aliased sets the alias of e and returns it.
func Aliased[E Expr](e E, alias string) E {
	e.SetAlias(alias)
	return e
}
