package binder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/leapstack-labs/pivotsql/pkg/format"
)

// DefaultSubqueryAlias names derived tables declared without an alias.
const DefaultSubqueryAlias = "unnamed_subquery"

// PivotHandler binds PIVOT and UNPIVOT table references.
// Implementations register the result in scope themselves.
type PivotHandler interface {
	BindPivot(b *Binder, scope *Scope, ref *core.PivotRef) (*BoundSubquery, error)
}

// Binder resolves table and column references.
type Binder struct {
	catalog   Catalog
	logger    *slog.Logger
	pivots    PivotHandler
	nextIndex int
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPivotHandler sets the handler for PIVOT and UNPIVOT references.
func WithPivotHandler(h PivotHandler) Option {
	return func(b *Binder) { b.pivots = h }
}

// New creates a binder over catalog.
func New(catalog Catalog, opts ...Option) *Binder {
	b := &Binder{
		catalog: catalog,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Catalog returns the catalog the binder resolves against.
func (b *Binder) Catalog() Catalog { return b.catalog }

// Logger returns the binder's logger.
func (b *Binder) Logger() *slog.Logger { return b.logger }

// NextIndex allocates a fresh table index.
func (b *Binder) NextIndex() int {
	b.nextIndex++
	return b.nextIndex
}

// CreateScope creates a scope nested in parent. A nil parent creates a
// detached root scope.
func (b *Binder) CreateScope(parent *Scope) *Scope {
	s := newScope(parent)
	b.logger.Debug("scope created", slog.Bool("root", parent == nil))
	return s
}

// Bind binds a table reference and registers it in scope.
func (b *Binder) Bind(scope *Scope, ref core.TableRef) (BoundTableRef, error) {
	var (
		bound BoundTableRef
		err   error
	)
	switch t := ref.(type) {
	case *core.BaseTableRef:
		bound, err = b.bindBaseTable(scope, t)
	case *core.SubqueryRef:
		bound, err = b.bindSubquery(scope, t)
	case *core.PivotRef:
		if b.pivots == nil {
			return nil, &ResolutionError{Msg: "PIVOT and UNPIVOT are not supported by this binder"}
		}
		bound, err = b.pivots.BindPivot(b, scope, t)
	case nil:
		return nil, &ResolutionError{Msg: "missing table reference"}
	default:
		return nil, &ResolutionError{Msg: fmt.Sprintf("unsupported table reference %T", ref)}
	}
	if err != nil {
		return nil, err
	}
	return bound, nil
}

func (b *Binder) bindBaseTable(scope *Scope, t *core.BaseTableRef) (*BoundBaseTable, error) {
	cols, err := b.catalog.TableColumns(t.Schema, t.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ResolutionError{Msg: fmt.Sprintf("Table with name %s does not exist", t.Name), Err: err}
		}
		return nil, fmt.Errorf("load columns of %s: %w", t.Name, err)
	}

	alias := t.Alias
	if alias == "" {
		alias = t.Name
	}
	bound := &BoundBaseTable{
		Index:  b.NextIndex(),
		Schema: t.Schema,
		Name:   t.Name,
		Alias:  alias,
		Names:  cols,
	}
	if err := scope.add(&Binding{Index: bound.Index, Alias: alias, Columns: cols, Node: bound}); err != nil {
		return nil, err
	}
	return bound, nil
}

func (b *Binder) bindSubquery(scope *Scope, t *core.SubqueryRef) (*BoundSubquery, error) {
	sel, err := b.BindSelect(b.CreateScope(scope), t.Select)
	if err != nil {
		return nil, err
	}

	alias := t.Alias
	if alias == "" {
		alias = DefaultSubqueryAlias
	}
	bound := &BoundSubquery{
		Index:         b.NextIndex(),
		Alias:         alias,
		ColumnAliases: t.ColumnAliases,
		Select:        sel,
	}
	if err := b.RegisterSubquery(scope, bound.Index, alias, t.ColumnAliases, sel); err != nil {
		return nil, err
	}
	return bound, nil
}

// BindSelect binds a query level. The FROM clause is registered in scope,
// which should be a fresh scope owned by the query.
func (b *Binder) BindSelect(scope *Scope, node *core.SelectNode) (*BoundSelect, error) {
	if node == nil {
		return nil, &ResolutionError{Msg: "missing query"}
	}

	var source BoundTableRef
	if node.From != nil {
		var err error
		if source, err = b.Bind(scope, node.From); err != nil {
			return nil, err
		}
	}
	return b.bindClauses(scope, node, source)
}

// BindSelectOver binds a query level whose FROM clause is the already
// bound source, registered in scope under alias.
func (b *Binder) BindSelectOver(scope *Scope, node *core.SelectNode, alias string, source BoundTableRef) (*BoundSelect, error) {
	index := b.NextIndex()
	if sub, ok := source.(*BoundSubquery); ok {
		index = sub.Index
	}
	if err := scope.add(&Binding{Index: index, Alias: alias, Columns: source.Columns(), Node: source}); err != nil {
		return nil, err
	}
	return b.bindClauses(scope, node, source)
}

func (b *Binder) bindClauses(scope *Scope, node *core.SelectNode, source BoundTableRef) (*BoundSelect, error) {
	names, err := b.bindSelectList(scope, node.SelectList)
	if err != nil {
		return nil, err
	}

	if node.Where != nil {
		if err := b.bindExpr(scope, node.Where); err != nil {
			return nil, err
		}
	}

	for _, g := range node.GroupBy {
		if n, ok := core.AsOrdinal(g); ok {
			if n < 1 || n > len(node.SelectList) {
				return nil, &ResolutionError{Msg: fmt.Sprintf("GROUP BY term out of range - should be between 1 and %d", len(node.SelectList))}
			}
			continue
		}
		if err := b.bindExpr(scope, g); err != nil {
			return nil, err
		}
	}

	if node.Having != nil {
		if err := b.bindExpr(scope, node.Having); err != nil {
			return nil, err
		}
	}

	return &BoundSelect{Node: node, Names: names, Source: source, Scope: scope}, nil
}

func (b *Binder) bindSelectList(scope *Scope, list []core.Expr) ([]string, error) {
	var names []string
	for _, e := range list {
		star, ok := e.(*core.StarExpr)
		if !ok {
			if err := b.bindExpr(scope, e); err != nil {
				return nil, err
			}
			names = append(names, format.Name(e))
			continue
		}

		expanded, err := b.expandStar(scope, star)
		if err != nil {
			return nil, err
		}
		for _, ref := range expanded {
			names = append(names, ref.Column)
		}
	}
	return names, nil
}

func (b *Binder) expandStar(scope *Scope, star *core.StarExpr) ([]*core.ColumnRef, error) {
	if star.Table == "" {
		refs := b.ExpandWildcard(scope)
		if len(refs) == 0 {
			return nil, &ResolutionError{Msg: "SELECT * with no tables specified is not valid"}
		}
		return refs, nil
	}

	binding, ok := scope.byAlias[Fold(star.Table)]
	if !ok {
		return nil, &ResolutionError{Msg: fmt.Sprintf("Referenced table %q not found", star.Table)}
	}
	refs := make([]*core.ColumnRef, len(binding.Columns))
	for i, c := range binding.Columns {
		refs[i] = &core.ColumnRef{Table: binding.Alias, Column: c}
	}
	return refs, nil
}

// ExpandWildcard returns a qualified reference to every column bound in
// scope, in binding order.
func (b *Binder) ExpandWildcard(scope *Scope) []*core.ColumnRef {
	var refs []*core.ColumnRef
	for _, binding := range scope.bindings {
		for _, c := range binding.Columns {
			refs = append(refs, &core.ColumnRef{Table: binding.Alias, Column: c})
		}
	}
	return refs
}

// Peek binds a copy of ref in a detached scope and returns its output
// columns. Neither ref nor any existing scope is modified.
func (b *Binder) Peek(ref core.TableRef) ([]string, error) {
	bound, err := b.Bind(b.CreateScope(nil), core.CopyTableRef(ref))
	if err != nil {
		return nil, err
	}
	return bound.Columns(), nil
}

// RegisterSubquery registers a bound query in scope as a derived table.
// columnAliases rename the leading output columns. On error scope is left
// unchanged.
func (b *Binder) RegisterSubquery(scope *Scope, index int, alias string, columnAliases []string, node BoundTableRef) error {
	cols := node.Columns()
	if len(columnAliases) > len(cols) {
		return &ResolutionError{Msg: fmt.Sprintf("table %q has %d columns available but %d columns specified", alias, len(cols), len(columnAliases))}
	}

	if err := scope.add(&Binding{
		Index:   index,
		Alias:   alias,
		Columns: applyAliases(cols, columnAliases),
		Node:    node,
	}); err != nil {
		return err
	}

	b.logger.Debug("subquery registered",
		slog.String("alias", alias),
		slog.Int("index", index),
		slog.Int("columns", len(cols)))
	return nil
}
