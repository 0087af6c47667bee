package format

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/core"
)

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reserved lists the DuckDB keywords that cannot appear as bare identifiers.
var reserved = map[string]struct{}{
	"all": {}, "analyse": {}, "analyze": {}, "and": {}, "any": {}, "array": {},
	"as": {}, "asc": {}, "asymmetric": {}, "both": {}, "case": {}, "cast": {},
	"check": {}, "collate": {}, "column": {}, "constraint": {}, "create": {},
	"default": {}, "deferrable": {}, "desc": {}, "distinct": {}, "do": {},
	"else": {}, "end": {}, "except": {}, "false": {}, "fetch": {}, "for": {},
	"foreign": {}, "from": {}, "grant": {}, "group": {}, "having": {}, "in": {},
	"initially": {}, "intersect": {}, "into": {}, "lateral": {}, "leading": {},
	"limit": {}, "not": {}, "null": {}, "offset": {}, "on": {}, "only": {},
	"or": {}, "order": {}, "pivot": {}, "pivot_longer": {}, "pivot_wider": {},
	"placing": {}, "primary": {}, "qualify": {}, "references": {},
	"returning": {}, "select": {}, "some": {}, "symmetric": {}, "table": {},
	"then": {}, "to": {}, "trailing": {}, "true": {}, "union": {}, "unique": {},
	"unpivot": {}, "using": {}, "variadic": {}, "when": {}, "where": {},
	"window": {}, "with": {},
}

// Ident renders an identifier, quoting it when it is not a plain word
// or collides with a reserved keyword.
func Ident(name string) string {
	if plainIdent.MatchString(name) {
		if _, ok := reserved[strings.ToLower(name)]; !ok {
			return name
		}
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Literal renders a value as a SQL literal.
func Literal(v core.Value) string {
	switch v.Kind {
	case core.ValueNull:
		return "NULL"
	case core.ValueBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case core.ValueInteger:
		return strconv.FormatInt(v.Int, 10)
	case core.ValueFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case core.ValueString:
		return "'" + strings.ReplaceAll(v.Str, "'", "''") + "'"
	case core.ValueList:
		parts := make([]string, len(v.List))
		for i, elem := range v.List {
			parts[i] = Literal(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "NULL"
	}
}

// formatExpr renders an expression without its alias.
func (p *Printer) formatExpr(expr core.Expr) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *core.ColumnRef:
		if e.Table != "" {
			p.write(Ident(e.Table))
			p.write(".")
		}
		p.write(Ident(e.Column))
	case *core.Constant:
		p.write(Literal(e.Value))
	case *core.FuncCall:
		p.formatFuncCall(e)
	case *core.Conjunction:
		p.write("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.space()
				p.kw(string(e.Op))
				p.space()
			}
			p.formatExpr(arg)
		}
		p.write(")")
	case *core.Comparison:
		p.formatExpr(e.Left)
		p.space()
		p.write(string(e.Op))
		p.space()
		p.formatExpr(e.Right)
	case *core.OperatorExpr:
		p.formatOperator(e)
	case *core.CaseExpr:
		p.formatCaseExpr(e)
	case *core.SubqueryExpr:
		p.write("(")
		p.write(compactSelect(e.Select))
		p.write(")")
	case *core.StarExpr:
		if e.Table != "" {
			p.write(Ident(e.Table))
			p.write(".")
		}
		p.write("*")
	}
}

// formatAliased renders a select-list entry.
func (p *Printer) formatAliased(expr core.Expr) {
	p.formatExpr(expr)
	if alias := expr.GetAlias(); alias != "" {
		p.space()
		p.kw("AS")
		p.space()
		p.write(Ident(alias))
	}
}

func (p *Printer) formatFuncCall(fn *core.FuncCall) {
	p.write(fn.Name)
	p.write("(")
	if fn.Distinct {
		p.kw("DISTINCT")
		p.space()
	}
	if fn.Star {
		p.write("*")
	} else {
		p.formatList(len(fn.Args), func(i int) { p.formatExpr(fn.Args[i]) }, ",", false)
	}
	p.write(")")

	if fn.Window != nil {
		p.space()
		p.kw("OVER")
		p.write(" (")
		p.formatWindowSpec(fn.Window)
		p.write(")")
	}
}

func (p *Printer) formatWindowSpec(w *core.WindowSpec) {
	if len(w.PartitionBy) > 0 {
		p.kw("PARTITION", "BY")
		p.space()
		p.formatList(len(w.PartitionBy), func(i int) { p.formatExpr(w.PartitionBy[i]) }, ",", false)
	}
	if len(w.OrderBy) > 0 {
		if len(w.PartitionBy) > 0 {
			p.space()
		}
		p.kw("ORDER", "BY")
		p.space()
		p.formatList(len(w.OrderBy), func(i int) {
			p.formatExpr(w.OrderBy[i].Expr)
			if w.OrderBy[i].Desc {
				p.space()
				p.kw("DESC")
			}
		}, ",", false)
	}
}

func (p *Printer) formatOperator(op *core.OperatorExpr) {
	p.write("(")
	switch op.Op {
	case core.OperatorNot:
		p.kw("NOT")
		p.space()
		p.formatList(len(op.Args), func(i int) { p.formatExpr(op.Args[i]) }, ",", false)
	default:
		p.formatList(len(op.Args), func(i int) { p.formatExpr(op.Args[i]) }, ",", false)
		p.space()
		p.kw(string(op.Op))
	}
	p.write(")")
}

func (p *Printer) formatCaseExpr(c *core.CaseExpr) {
	p.kw("CASE")
	for _, check := range c.Checks {
		p.space()
		p.kw("WHEN")
		p.space()
		p.formatExpr(check.When)
		p.space()
		p.kw("THEN")
		p.space()
		p.formatExpr(check.Then)
	}
	if c.Else != nil {
		p.space()
		p.kw("ELSE")
		p.space()
		p.formatExpr(c.Else)
	}
	p.space()
	p.kw("END")
}
