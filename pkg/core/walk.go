package core

// Children returns the direct child expressions of e in evaluation order.
// Subquery bodies are a separate scope and are not children.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *FuncCall:
		children := append([]Expr(nil), n.Args...)
		if n.Window != nil {
			children = append(children, n.Window.PartitionBy...)
			for _, item := range n.Window.OrderBy {
				children = append(children, item.Expr)
			}
		}
		return children
	case *Conjunction:
		return n.Args
	case *Comparison:
		return []Expr{n.Left, n.Right}
	case *OperatorExpr:
		return n.Args
	case *CaseExpr:
		children := make([]Expr, 0, 2*len(n.Checks)+1)
		for _, check := range n.Checks {
			children = append(children, check.When, check.Then)
		}
		if n.Else != nil {
			children = append(children, n.Else)
		}
		return children
	default:
		// ColumnRef, Constant, StarExpr, SubqueryExpr
		return nil
	}
}

// Walk traverses an expression tree depth-first and calls fn for each node.
// If fn returns false, the children of that node are skipped.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range Children(e) {
		Walk(child, fn)
	}
}

// HasSubquery reports whether e contains a subquery anywhere in its tree.
func HasSubquery(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if _, ok := n.(*SubqueryExpr); ok {
			found = true
		}
		return !found
	})
	return found
}

// IsWindow reports whether e contains a window function call.
func IsWindow(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if fn, ok := n.(*FuncCall); ok && fn.Window != nil {
			found = true
		}
		return !found
	})
	return found
}

// ---------- Deep copy ----------

// CopyExpr returns a deep copy of e.
func CopyExpr(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *ColumnRef:
		c := *n
		return &c
	case *Constant:
		c := *n
		c.Value = copyValue(n.Value)
		return &c
	case *FuncCall:
		c := *n
		c.Args = copyExprs(n.Args)
		if n.Window != nil {
			w := &WindowSpec{PartitionBy: copyExprs(n.Window.PartitionBy)}
			for _, item := range n.Window.OrderBy {
				w.OrderBy = append(w.OrderBy, OrderByItem{Expr: CopyExpr(item.Expr), Desc: item.Desc})
			}
			c.Window = w
		}
		return &c
	case *Conjunction:
		c := *n
		c.Args = copyExprs(n.Args)
		return &c
	case *Comparison:
		c := *n
		c.Left = CopyExpr(n.Left)
		c.Right = CopyExpr(n.Right)
		return &c
	case *OperatorExpr:
		c := *n
		c.Args = copyExprs(n.Args)
		return &c
	case *CaseExpr:
		c := *n
		c.Checks = make([]CaseCheck, len(n.Checks))
		for i, check := range n.Checks {
			c.Checks[i] = CaseCheck{When: CopyExpr(check.When), Then: CopyExpr(check.Then)}
		}
		c.Else = CopyExpr(n.Else)
		return &c
	case *SubqueryExpr:
		c := *n
		c.Select = CopySelect(n.Select)
		return &c
	case *StarExpr:
		c := *n
		return &c
	default:
		return e
	}
}

// CopySelect returns a deep copy of a query node.
func CopySelect(s *SelectNode) *SelectNode {
	if s == nil {
		return nil
	}
	return &SelectNode{
		SelectList: copyExprs(s.SelectList),
		From:       CopyTableRef(s.From),
		Where:      CopyExpr(s.Where),
		GroupBy:    copyExprs(s.GroupBy),
		Having:     CopyExpr(s.Having),
	}
}

// CopyTableRef returns a deep copy of a table reference.
func CopyTableRef(t TableRef) TableRef {
	switch n := t.(type) {
	case nil:
		return nil
	case *BaseTableRef:
		c := *n
		return &c
	case *SubqueryRef:
		c := *n
		c.Select = CopySelect(n.Select)
		c.ColumnAliases = append([]string(nil), n.ColumnAliases...)
		return &c
	case *PivotRef:
		c := *n
		c.Source = CopyTableRef(n.Source)
		c.Groups = append([]string(nil), n.Groups...)
		c.Aggregates = copyExprs(n.Aggregates)
		c.ColumnAliases = append([]string(nil), n.ColumnAliases...)
		c.UnpivotNames = append([]string(nil), n.UnpivotNames...)
		c.Pivots = make([]PivotColumn, len(n.Pivots))
		for i, p := range n.Pivots {
			c.Pivots[i] = PivotColumn{
				Expressions:  copyExprs(p.Expressions),
				UnpivotNames: append([]string(nil), p.UnpivotNames...),
				EnumName:     p.EnumName,
				Entries:      make([]PivotColumnEntry, len(p.Entries)),
			}
			for j, entry := range p.Entries {
				values := make([]Value, len(entry.Values))
				for k, v := range entry.Values {
					values[k] = copyValue(v)
				}
				c.Pivots[i].Entries[j] = PivotColumnEntry{Values: values, Star: entry.Star, Alias: entry.Alias}
			}
		}
		return &c
	default:
		return t
	}
}

func copyExprs(exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = CopyExpr(e)
	}
	return out
}

func copyValue(v Value) Value {
	if v.Kind != ValueList {
		return v
	}
	list := make([]Value, len(v.List))
	for i, elem := range v.List {
		list[i] = copyValue(elem)
	}
	v.List = list
	return v
}
