package format

import (
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

func compactSelect(node *core.SelectNode) string {
	p := newCompactPrinter()
	p.formatSelect(node)
	return p.String()
}

func (p *Printer) formatSelect(node *core.SelectNode) {
	if node == nil {
		return
	}

	p.kw("SELECT")
	p.writeln()
	p.indent()
	p.formatList(len(node.SelectList), func(i int) { p.formatAliased(node.SelectList[i]) }, ",", true)
	p.writeln()
	p.dedent()

	if node.From != nil {
		p.kw("FROM")
		p.space()
		p.formatTableRef(node.From)
		p.writeln()
	}

	if node.Where != nil {
		p.formatClause("WHERE", func() { p.formatExpr(node.Where) })
	}

	if len(node.GroupBy) > 0 {
		p.formatClause("GROUP BY", func() {
			p.formatList(len(node.GroupBy), func(i int) { p.formatExpr(node.GroupBy[i]) }, ",", false)
		})
	}

	if node.Having != nil {
		p.formatClause("HAVING", func() { p.formatExpr(node.Having) })
	}
}

// formatClause prints a keyword line followed by an indented body.
func (p *Printer) formatClause(keyword string, body func()) {
	p.kw(keyword)
	p.writeln()
	p.indent()
	body()
	p.writeln()
	p.dedent()
}

func (p *Printer) formatTableRef(ref core.TableRef) {
	if ref == nil {
		return
	}

	switch t := ref.(type) {
	case *core.BaseTableRef:
		if t.Schema != "" {
			p.write(Ident(t.Schema))
			p.write(".")
		}
		p.write(Ident(t.Name))
		p.formatTableAlias(t.Alias, nil)
	case *core.SubqueryRef:
		p.write("(")
		p.writeln()
		p.indent()
		p.formatSelect(t.Select)
		p.dedent()
		p.write(")")
		p.formatTableAlias(t.Alias, t.ColumnAliases)
	case *core.PivotRef:
		p.write("(")
		if t.IsUnpivot() {
			p.formatUnpivot(t)
		} else {
			p.formatPivot(t)
		}
		p.write(")")
		p.formatTableAlias(t.Alias, t.ColumnAliases)
	}
}

func (p *Printer) formatTableAlias(alias string, columns []string) {
	if alias == "" {
		return
	}
	p.space()
	p.kw("AS")
	p.space()
	p.write(Ident(alias))
	if len(columns) > 0 {
		p.write("(")
		p.formatList(len(columns), func(i int) { p.write(Ident(columns[i])) }, ",", false)
		p.write(")")
	}
}

// formatPivot renders a pivot declaration in DuckDB's statement form,
// e.g. PIVOT sales ON quarter IN ('Q1', 'Q2') USING sum(amount) GROUP BY region.
func (p *Printer) formatPivot(t *core.PivotRef) {
	p.kw("PIVOT")
	p.space()
	p.formatTableRef(t.Source)
	p.space()
	p.kw("ON")
	p.space()
	p.formatList(len(t.Pivots), func(i int) {
		col := t.Pivots[i]
		p.formatPivotExprs(col.Expressions)
		p.space()
		p.kw("IN")
		p.space()
		if col.EnumName != "" {
			p.write(Ident(col.EnumName))
			return
		}
		p.write("(")
		p.formatList(len(col.Entries), func(j int) { p.formatPivotEntry(col.Entries[j]) }, ",", false)
		p.write(")")
	}, ",", false)

	p.space()
	p.kw("USING")
	p.space()
	p.formatList(len(t.Aggregates), func(i int) { p.formatAliased(t.Aggregates[i]) }, ",", false)

	if len(t.Groups) > 0 {
		p.space()
		p.kw("GROUP", "BY")
		p.space()
		p.formatList(len(t.Groups), func(i int) { p.write(Ident(t.Groups[i])) }, ",", false)
	}
}

func (p *Printer) formatPivotExprs(exprs []core.Expr) {
	if len(exprs) == 1 {
		p.formatExpr(exprs[0])
		return
	}
	p.write("(")
	p.formatList(len(exprs), func(i int) { p.formatExpr(exprs[i]) }, ",", false)
	p.write(")")
}

func (p *Printer) formatPivotEntry(entry core.PivotColumnEntry) {
	switch {
	case entry.Star:
		p.write("*")
	case len(entry.Values) == 1:
		p.write(Literal(entry.Values[0]))
	default:
		p.write("(")
		p.formatList(len(entry.Values), func(i int) { p.write(Literal(entry.Values[i])) }, ",", false)
		p.write(")")
	}
	if entry.Alias != "" {
		p.space()
		p.kw("AS")
		p.space()
		p.write(Ident(entry.Alias))
	}
}

// formatUnpivot renders an unpivot declaration in DuckDB's statement form,
// e.g. UNPIVOT t ON q1, q2 INTO NAME quarter VALUE amount.
// INCLUDE NULLS is not accepted by the statement form, so that case falls
// back to the standard form wrapped in a SELECT.
func (p *Printer) formatUnpivot(t *core.PivotRef) {
	if t.IncludeNulls {
		p.formatUnpivotIncludeNulls(t)
		return
	}
	p.kw("UNPIVOT")
	p.space()
	p.formatTableRef(t.Source)
	p.space()
	p.kw("ON")
	p.space()

	var names []string
	for i, col := range t.Pivots {
		if i > 0 {
			p.write(", ")
		}
		names = append(names, col.UnpivotNames...)
		p.formatUnpivotEntries(col.Entries)
	}

	p.space()
	p.kw("INTO", "NAME")
	p.space()
	p.formatList(len(names), func(i int) { p.write(Ident(names[i])) }, ",", false)
	p.space()
	p.kw("VALUE")
	p.space()
	p.formatList(len(t.UnpivotNames), func(i int) { p.write(Ident(t.UnpivotNames[i])) }, ",", false)
}

// formatUnpivotIncludeNulls renders
// SELECT * FROM t UNPIVOT INCLUDE NULLS (amount FOR quarter IN (q1, q2)).
func (p *Printer) formatUnpivotIncludeNulls(t *core.PivotRef) {
	p.kw("SELECT")
	p.write(" * ")
	p.kw("FROM")
	p.space()
	p.formatTableRef(t.Source)
	p.space()
	p.kw("UNPIVOT", "INCLUDE", "NULLS")
	p.write(" (")
	p.formatNameHeader(t.UnpivotNames)
	for _, col := range t.Pivots {
		p.space()
		p.kw("FOR")
		p.space()
		p.formatNameHeader(col.UnpivotNames)
		p.space()
		p.kw("IN")
		p.write(" (")
		p.formatUnpivotEntries(col.Entries)
		p.write(")")
	}
	p.write(")")
}

func (p *Printer) formatNameHeader(names []string) {
	if len(names) == 1 {
		p.write(Ident(names[0]))
		return
	}
	p.write("(")
	p.formatList(len(names), func(i int) { p.write(Ident(names[i])) }, ",", false)
	p.write(")")
}

func (p *Printer) formatUnpivotEntries(entries []core.PivotColumnEntry) {
	p.formatList(len(entries), func(i int) {
		entry := entries[i]
		switch {
		case entry.Star:
			p.write("COLUMNS(*)")
		case len(entry.Values) == 1:
			p.write(Ident(entry.Values[0].String()))
		default:
			p.write("(")
			p.formatList(len(entry.Values), func(j int) { p.write(Ident(entry.Values[j].String())) }, ",", false)
			p.write(")")
		}
		if entry.Alias != "" {
			p.space()
			p.kw("AS")
			p.space()
			p.write(Ident(entry.Alias))
		}
	}, ",", false)
}
