package core

// ---------- Query Types ----------

// SelectNode represents a single SELECT query level.
//
// GroupBy entries may be positional: a Constant holding an integer
// value n groups by the n-th (1-based) select-list entry.
type SelectNode struct {
	SelectList []Expr
	From       TableRef
	Where      Expr
	GroupBy    []Expr
	Having     Expr
}

func (*SelectNode) node() {}

// Ordinal returns a positional GROUP BY reference to select-list entry n (1-based).
func Ordinal(n int) *Constant {
	return NewConstant(IntegerValue(int64(n)))
}

// AsOrdinal reports whether e is a positional reference and returns its index.
func AsOrdinal(e Expr) (int, bool) {
	c, ok := e.(*Constant)
	if !ok || c.Value.Kind != ValueInteger {
		return 0, false
	}
	return int(c.Value.Int), true
}
