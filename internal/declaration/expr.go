package declaration

import (
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/core"
	"gopkg.in/yaml.v3"
)

// pivotColumn decodes one PIVOT ON item: {expr, in} or {expr, enum}.
func (d *decoder) pivotColumn(n *yaml.Node) (core.PivotColumn, error) {
	var col core.PivotColumn
	f, err := d.fields(n, "on", "expr", "in", "enum")
	if err != nil {
		return col, err
	}

	if e := f["expr"]; e != nil {
		items := []*yaml.Node{e}
		if e.Kind == yaml.SequenceNode {
			items = e.Content
		}
		for _, item := range items {
			expr, err := d.expr(item)
			if err != nil {
				return col, err
			}
			col.Expressions = append(col.Expressions, expr)
		}
	}

	if enum := f["enum"]; enum != nil {
		if f["in"] != nil {
			return col, d.errorf(n, "on item cannot have both in and enum")
		}
		col.EnumName, err = d.scalar(enum, "enum")
		return col, err
	}

	in := f["in"]
	if in == nil {
		return col, d.errorf(n, "on item requires in or enum")
	}
	items, err := d.sequence(in, "in")
	if err != nil {
		return col, err
	}
	for _, item := range items {
		entry, err := d.pivotEntry(item)
		if err != nil {
			return col, err
		}
		col.Entries = append(col.Entries, entry)
	}
	return col, nil
}

// pivotEntry decodes an IN element: a literal, a tuple list, or
// {value, alias} / {star: true}.
func (d *decoder) pivotEntry(n *yaml.Node) (core.PivotColumnEntry, error) {
	var entry core.PivotColumnEntry
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := d.literal(n)
		entry.Values = []core.Value{v}
		return entry, err
	case yaml.SequenceNode:
		for _, item := range n.Content {
			v, err := d.literal(item)
			if err != nil {
				return entry, err
			}
			entry.Values = append(entry.Values, v)
		}
		return entry, nil
	}

	f, err := d.fields(n, "in", "value", "alias", "star")
	if err != nil {
		return entry, err
	}
	if star := f["star"]; star != nil {
		if err := star.Decode(&entry.Star); err != nil {
			return entry, d.errorf(star, "star must be a boolean")
		}
	}
	if v := f["value"]; v != nil {
		if v.Kind == yaml.MappingNode {
			return entry, d.errorf(v, "value must be a literal or a list of literals")
		}
		inner, err := d.pivotEntry(v)
		if err != nil {
			return entry, err
		}
		entry.Values = inner.Values
	}
	if a := f["alias"]; a != nil {
		if entry.Alias, err = d.scalar(a, "alias"); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// unpivotEntry decodes an UNPIVOT ON element: a column name, "*", a list
// of column names, or {columns, alias} / {star: true}.
func (d *decoder) unpivotEntry(n *yaml.Node) (core.PivotColumnEntry, error) {
	var entry core.PivotColumnEntry
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Value == "*" {
			entry.Star = true
			return entry, nil
		}
		entry.Values = []core.Value{core.StringValue(n.Value)}
		return entry, nil
	case yaml.SequenceNode:
		cols, err := d.names(n, "on")
		if err != nil {
			return entry, err
		}
		entry.Values = columnValues(cols)
		return entry, nil
	}

	f, err := d.fields(n, "on", "columns", "alias", "star")
	if err != nil {
		return entry, err
	}
	if star := f["star"]; star != nil {
		if err := star.Decode(&entry.Star); err != nil {
			return entry, d.errorf(star, "star must be a boolean")
		}
	}
	cols, err := d.names(f["columns"], "columns")
	if err != nil {
		return entry, err
	}
	entry.Values = columnValues(cols)
	if a := f["alias"]; a != nil {
		if entry.Alias, err = d.scalar(a, "alias"); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

func columnValues(cols []string) []core.Value {
	if len(cols) == 0 {
		return nil
	}
	values := make([]core.Value, len(cols))
	for i, c := range cols {
		values[i] = core.StringValue(c)
	}
	return values
}

// literal decodes a scalar or list node into a typed value.
func (d *decoder) literal(n *yaml.Node) (core.Value, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		list := make([]core.Value, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := d.literal(item)
			if err != nil {
				return core.Value{}, err
			}
			list = append(list, v)
		}
		return core.ListValue(list...), nil
	case yaml.ScalarNode:
	default:
		return core.Value{}, d.errorf(n, "expected a literal")
	}

	switch n.ShortTag() {
	case "!!null":
		return core.NullValue(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return core.Value{}, d.errorf(n, "invalid boolean %q", n.Value)
		}
		return core.BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return core.Value{}, d.errorf(n, "invalid integer %q", n.Value)
		}
		return core.IntegerValue(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return core.Value{}, d.errorf(n, "invalid float %q", n.Value)
		}
		return core.FloatValue(f), nil
	default:
		return core.StringValue(n.Value), nil
	}
}

// expr decodes an expression. A string is a column reference ("t.c" is
// qualified, "*" and "t.*" are stars), any other scalar a constant, and a
// mapping one of {column}, {value}, {func}, {subquery}, {and}, {or},
// {not_null} or {op, left, right}.
func (d *decoder) expr(n *yaml.Node) (core.Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() != "!!str" {
			v, err := d.literal(n)
			if err != nil {
				return nil, err
			}
			return core.NewConstant(v), nil
		}
		return columnOrStar(n.Value), nil
	case yaml.MappingNode:
	default:
		return nil, d.errorf(n, "expression must be a string or a mapping")
	}

	keys := mappingKeys(n)
	var (
		e   core.Expr
		err error
	)
	switch {
	case contains(keys, "func"):
		e, err = d.funcCall(n)
	case contains(keys, "column"):
		e, err = d.column(n)
	case contains(keys, "value"):
		e, err = d.constant(n)
	case contains(keys, "subquery"):
		e, err = d.subquery(n)
	case contains(keys, "and"), contains(keys, "or"):
		e, err = d.conjunction(n)
	case contains(keys, "not_null"):
		e, err = d.notNull(n)
	case contains(keys, "op"):
		e, err = d.comparison(n)
	default:
		return nil, d.errorf(n, "unrecognized expression")
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func columnOrStar(s string) core.Expr {
	if s == "*" {
		return &core.StarExpr{}
	}
	table, column, ok := strings.Cut(s, ".")
	if !ok {
		return core.NewColumnRef(s)
	}
	if column == "*" {
		return &core.StarExpr{Table: table}
	}
	return &core.ColumnRef{Table: table, Column: column}
}

func (d *decoder) alias(f map[string]*yaml.Node, e core.Expr) error {
	a := f["alias"]
	if a == nil {
		return nil
	}
	alias, err := d.scalar(a, "alias")
	if err != nil {
		return err
	}
	e.SetAlias(alias)
	return nil
}

func (d *decoder) column(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "column", "column", "alias")
	if err != nil {
		return nil, err
	}
	name, err := d.scalar(f["column"], "column")
	if err != nil {
		return nil, err
	}
	e := columnOrStar(name)
	return e, d.alias(f, e)
}

func (d *decoder) constant(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "value", "value", "alias")
	if err != nil {
		return nil, err
	}
	v, err := d.literal(f["value"])
	if err != nil {
		return nil, err
	}
	e := core.NewConstant(v)
	return e, d.alias(f, e)
}

func (d *decoder) funcCall(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "function", "func", "args", "distinct", "star", "over", "alias")
	if err != nil {
		return nil, err
	}
	name, err := d.scalar(f["func"], "func")
	if err != nil {
		return nil, err
	}
	call := core.NewFuncCall(name)

	if args := f["args"]; args != nil {
		if call.Args, err = d.exprList(args, "args"); err != nil {
			return nil, err
		}
	}
	if v := f["distinct"]; v != nil {
		if err := v.Decode(&call.Distinct); err != nil {
			return nil, d.errorf(v, "distinct must be a boolean")
		}
	}
	if v := f["star"]; v != nil {
		if err := v.Decode(&call.Star); err != nil {
			return nil, d.errorf(v, "star must be a boolean")
		}
	}
	if over := f["over"]; over != nil {
		if call.Window, err = d.window(over); err != nil {
			return nil, err
		}
	}
	return call, d.alias(f, call)
}

func (d *decoder) window(n *yaml.Node) (*core.WindowSpec, error) {
	w := &core.WindowSpec{}
	if n.Kind == yaml.ScalarNode && n.Value == "" {
		return w, nil
	}
	f, err := d.fields(n, "over", "partition_by", "order_by")
	if err != nil {
		return nil, err
	}
	if p := f["partition_by"]; p != nil {
		if w.PartitionBy, err = d.exprList(p, "partition_by"); err != nil {
			return nil, err
		}
	}
	if o := f["order_by"]; o != nil {
		items, err := d.sequence(o, "order_by")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var ob core.OrderByItem
			if item.Kind == yaml.MappingNode && contains(mappingKeys(item), "desc") {
				of, err := d.fields(item, "order_by", "expr", "desc")
				if err != nil {
					return nil, err
				}
				if err := of["desc"].Decode(&ob.Desc); err != nil {
					return nil, d.errorf(of["desc"], "desc must be a boolean")
				}
				if of["expr"] == nil {
					return nil, d.errorf(item, "order_by item requires expr")
				}
				item = of["expr"]
			}
			if ob.Expr, err = d.expr(item); err != nil {
				return nil, err
			}
			w.OrderBy = append(w.OrderBy, ob)
		}
	}
	return w, nil
}

func (d *decoder) subquery(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "subquery expression", "subquery", "alias")
	if err != nil {
		return nil, err
	}
	q := f["subquery"]
	qf, err := d.fields(q, "subquery", "select", "from", "where")
	if err != nil {
		return nil, err
	}
	sel, err := d.selectNode(q, qf)
	if err != nil {
		return nil, err
	}
	e := &core.SubqueryExpr{Select: sel}
	return e, d.alias(f, e)
}

func (d *decoder) conjunction(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "conjunction", "and", "or", "alias")
	if err != nil {
		return nil, err
	}
	conj := &core.Conjunction{Op: core.ConjunctionAnd}
	args := f["and"]
	if f["or"] != nil {
		if args != nil {
			return nil, d.errorf(n, "conjunction cannot have both and and or")
		}
		conj.Op, args = core.ConjunctionOr, f["or"]
	}
	if conj.Args, err = d.exprList(args, string(conj.Op)); err != nil {
		return nil, err
	}
	if len(conj.Args) < 2 {
		return nil, d.errorf(n, "%s requires at least two operands", conj.Op)
	}
	return conj, d.alias(f, conj)
}

func (d *decoder) notNull(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "not_null", "not_null", "alias")
	if err != nil {
		return nil, err
	}
	arg, err := d.expr(f["not_null"])
	if err != nil {
		return nil, err
	}
	e := core.NewIsNotNull(arg)
	return e, d.alias(f, e)
}

var compareOps = map[string]core.CompareOp{
	"=":  core.CompareEqual,
	"<>": core.CompareNotEqual,
	"!=": core.CompareNotEqual,
	"<":  core.CompareLess,
	">":  core.CompareGreater,
	"<=": core.CompareLessEqual,
	">=": core.CompareGreaterEqual,
}

func (d *decoder) comparison(n *yaml.Node) (core.Expr, error) {
	f, err := d.fields(n, "comparison", "op", "left", "right", "alias")
	if err != nil {
		return nil, err
	}
	opText, err := d.scalar(f["op"], "op")
	if err != nil {
		return nil, err
	}
	op, ok := compareOps[opText]
	if !ok {
		return nil, d.errorf(f["op"], "unknown comparison operator %q", opText)
	}
	if f["left"] == nil || f["right"] == nil {
		return nil, d.errorf(n, "comparison requires left and right")
	}
	cmp := &core.Comparison{Op: op}
	if cmp.Left, err = d.expr(f["left"]); err != nil {
		return nil, err
	}
	if cmp.Right, err = d.expr(f["right"]); err != nil {
		return nil, err
	}
	return cmp, d.alias(f, cmp)
}

func (d *decoder) exprList(n *yaml.Node, context string) ([]core.Expr, error) {
	items, err := d.sequence(n, context)
	if err != nil {
		return nil, err
	}
	out := make([]core.Expr, 0, len(items))
	for _, item := range items {
		e, err := d.expr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
