// Package declaration reads PIVOT and UNPIVOT declarations from YAML
// documents into core.PivotRef trees.
//
// A document has exactly one top-level key, "pivot" or "unpivot":
//
//	pivot:
//	  source: sales
//	  on:
//	    - expr: quarter
//	      in: [Q1, Q2]
//	  using:
//	    - {func: sum, args: [amount]}
//
// Scalar literals keep their YAML type, so `in: [1, "1"]` holds an
// integer and a string.
package declaration

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/pivotsql/pkg/core"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the declaration stored at path.
func Load(path string) (*core.PivotRef, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration: %w", err)
	}
	return parse(path, data)
}

// Parse parses a declaration document.
func Parse(data []byte) (*core.PivotRef, error) {
	return parse("", data)
}

func parse(file string, data []byte) (*core.PivotRef, error) {
	d := &decoder{file: file}

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{File: file, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(doc.Content) == 0 {
		return nil, &ParseError{File: file, Message: "empty declaration"}
	}

	ref, err := d.declaration(doc.Content[0])
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, d.errorf(doc.Content[0], "expected a pivot or unpivot declaration")
	}
	return ref, nil
}

type decoder struct {
	file string
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return &ParseError{File: d.file, Line: n.Line, Message: fmt.Sprintf(format, args...)}
}

// fields returns the entries of a mapping node keyed by name, rejecting
// keys outside known.
func (d *decoder) fields(n *yaml.Node, context string, known ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "%s must be a mapping", context)
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if !contains(known, key.Value) {
			return nil, &UnknownFieldError{File: d.file, Line: key.Line, Field: key.Value, Context: context}
		}
		if _, dup := out[key.Value]; dup {
			return nil, d.errorf(key, "duplicate field %q in %s", key.Value, context)
		}
		out[key.Value] = value
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// declaration decodes a {pivot: ...} or {unpivot: ...} mapping. It
// returns nil without error when n is a mapping with neither key.
func (d *decoder) declaration(n *yaml.Node) (*core.PivotRef, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "declaration must be a mapping")
	}
	f, err := d.fields(n, "declaration", "pivot", "unpivot")
	if err != nil {
		return nil, err
	}
	switch {
	case f["pivot"] != nil && f["unpivot"] != nil:
		return nil, d.errorf(n, "declaration has both pivot and unpivot")
	case f["pivot"] != nil:
		return d.pivot(f["pivot"])
	case f["unpivot"] != nil:
		return d.unpivot(f["unpivot"])
	default:
		return nil, nil
	}
}

func (d *decoder) pivot(n *yaml.Node) (*core.PivotRef, error) {
	f, err := d.fields(n, "pivot", "source", "on", "rows", "using", "alias", "columns")
	if err != nil {
		return nil, err
	}
	ref := &core.PivotRef{}
	if err := d.common(n, f, ref); err != nil {
		return nil, err
	}

	if on := f["on"]; on != nil {
		items, err := d.sequence(on, "on")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			col, err := d.pivotColumn(item)
			if err != nil {
				return nil, err
			}
			ref.Pivots = append(ref.Pivots, col)
		}
	}

	if ref.Groups, err = d.names(f["rows"], "rows"); err != nil {
		return nil, err
	}

	using := f["using"]
	if using == nil {
		return nil, d.errorf(n, "pivot requires a using list")
	}
	items, err := d.sequence(using, "using")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, d.errorf(using, "pivot requires at least one aggregate")
	}
	for _, item := range items {
		agg, err := d.expr(item)
		if err != nil {
			return nil, err
		}
		ref.Aggregates = append(ref.Aggregates, agg)
	}
	return ref, nil
}

func (d *decoder) unpivot(n *yaml.Node) (*core.PivotRef, error) {
	f, err := d.fields(n, "unpivot", "source", "on", "into", "include_nulls", "alias", "columns")
	if err != nil {
		return nil, err
	}
	ref := &core.PivotRef{}
	if err := d.common(n, f, ref); err != nil {
		return nil, err
	}

	var col core.PivotColumn
	if into := f["into"]; into != nil {
		inf, err := d.fields(into, "into", "name", "value")
		if err != nil {
			return nil, err
		}
		if col.UnpivotNames, err = d.names(inf["name"], "into.name"); err != nil {
			return nil, err
		}
		if ref.UnpivotNames, err = d.names(inf["value"], "into.value"); err != nil {
			return nil, err
		}
	}
	if len(col.UnpivotNames) == 0 {
		return nil, d.errorf(n, "unpivot requires into.name")
	}
	if len(ref.UnpivotNames) == 0 {
		return nil, d.errorf(n, "unpivot requires into.value")
	}

	if on := f["on"]; on != nil {
		items, err := d.sequence(on, "on")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			entry, err := d.unpivotEntry(item)
			if err != nil {
				return nil, err
			}
			col.Entries = append(col.Entries, entry)
		}
	}
	ref.Pivots = []core.PivotColumn{col}

	if nulls := f["include_nulls"]; nulls != nil {
		if err := nulls.Decode(&ref.IncludeNulls); err != nil {
			return nil, d.errorf(nulls, "include_nulls must be a boolean")
		}
	}
	return ref, nil
}

// common decodes the keys shared by pivot and unpivot.
func (d *decoder) common(n *yaml.Node, f map[string]*yaml.Node, ref *core.PivotRef) error {
	src := f["source"]
	if src == nil {
		return d.errorf(n, "missing source")
	}
	source, err := d.tableRef(src)
	if err != nil {
		return err
	}
	ref.Source = source

	if alias := f["alias"]; alias != nil {
		if ref.Alias, err = d.scalar(alias, "alias"); err != nil {
			return err
		}
	}
	ref.ColumnAliases, err = d.names(f["columns"], "columns")
	return err
}

// tableRef decodes a source: "name", "schema.name", a {table, schema,
// alias} mapping, a nested declaration or a {select, from, where} query.
func (d *decoder) tableRef(n *yaml.Node) (core.TableRef, error) {
	if n.Kind == yaml.ScalarNode {
		return d.baseTable(n.Value, ""), nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "source must be a table name or a mapping")
	}

	keys := mappingKeys(n)
	switch {
	case contains(keys, "pivot") || contains(keys, "unpivot"):
		ref, err := d.declaration(n)
		if err != nil {
			return nil, err
		}
		return ref, nil
	case contains(keys, "select") || contains(keys, "from"):
		return d.subqueryRef(n)
	}

	f, err := d.fields(n, "source", "table", "schema", "alias")
	if err != nil {
		return nil, err
	}
	if f["table"] == nil {
		return nil, d.errorf(n, "source mapping requires a table")
	}
	name, err := d.scalar(f["table"], "table")
	if err != nil {
		return nil, err
	}
	alias := ""
	if a := f["alias"]; a != nil {
		if alias, err = d.scalar(a, "alias"); err != nil {
			return nil, err
		}
	}
	ref := d.baseTable(name, alias)
	if s := f["schema"]; s != nil {
		if ref.Schema, err = d.scalar(s, "schema"); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

func (d *decoder) baseTable(name, alias string) *core.BaseTableRef {
	ref := &core.BaseTableRef{Name: name, Alias: alias}
	if schema, table, ok := strings.Cut(name, "."); ok {
		ref.Schema, ref.Name = schema, table
	}
	return ref
}

func (d *decoder) subqueryRef(n *yaml.Node) (*core.SubqueryRef, error) {
	f, err := d.fields(n, "subquery", "select", "from", "where", "alias", "columns")
	if err != nil {
		return nil, err
	}
	sel, err := d.selectNode(n, f)
	if err != nil {
		return nil, err
	}
	ref := &core.SubqueryRef{Select: sel}
	if a := f["alias"]; a != nil {
		if ref.Alias, err = d.scalar(a, "alias"); err != nil {
			return nil, err
		}
	}
	if ref.ColumnAliases, err = d.names(f["columns"], "columns"); err != nil {
		return nil, err
	}
	return ref, nil
}

// selectNode decodes the select, from and where keys of a query mapping.
// A missing select list means SELECT *.
func (d *decoder) selectNode(n *yaml.Node, f map[string]*yaml.Node) (*core.SelectNode, error) {
	sel := &core.SelectNode{}
	if f["from"] == nil {
		return nil, d.errorf(n, "query requires a from")
	}
	from, err := d.tableRef(f["from"])
	if err != nil {
		return nil, err
	}
	sel.From = from

	if list := f["select"]; list != nil {
		items, err := d.sequence(list, "select")
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			e, err := d.expr(item)
			if err != nil {
				return nil, err
			}
			sel.SelectList = append(sel.SelectList, e)
		}
	} else {
		sel.SelectList = []core.Expr{&core.StarExpr{}}
	}

	if w := f["where"]; w != nil {
		if sel.Where, err = d.expr(w); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func mappingKeys(n *yaml.Node) []string {
	var keys []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func (d *decoder) sequence(n *yaml.Node, context string) ([]*yaml.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "%s must be a list", context)
	}
	return n.Content, nil
}

func (d *decoder) scalar(n *yaml.Node, context string) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", d.errorf(n, "%s must be a scalar", context)
	}
	return n.Value, nil
}

// names decodes a scalar or a list of scalars. A nil node yields nil.
func (d *decoder) names(n *yaml.Node, context string) ([]string, error) {
	if n == nil {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}, nil
	}
	items, err := d.sequence(n, context)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := d.scalar(item, context)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
