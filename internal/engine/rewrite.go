package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
	"github.com/leapstack-labs/pivotsql/pkg/format"
	"github.com/leapstack-labs/pivotsql/pkg/pivot"
)

// Plan is a declaration lowered to plain SQL.
type Plan struct {
	Alias   string           // Name the result is registered under
	Columns []string         // Output column names
	Node    *core.SelectNode // SELECT * FROM (<rewritten query>) AS alias
	SQL     string           // Node rendered for DuckDB
}

// Rewrite lowers ref against the engine's catalog.
func (e *Engine) Rewrite(ctx context.Context, ref *core.PivotRef) (*Plan, error) {
	cat, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return Rewrite(cat, ref, e.logger)
}

// Rewrite lowers ref, and every declaration nested in its source, into a
// query that only uses plain SELECT, GROUP BY and list/map functions.
// ref is not modified.
func Rewrite(cat binder.Catalog, ref *core.PivotRef, logger *slog.Logger) (*Plan, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &lowerer{catalog: cat, logger: logger}

	lowered, err := l.pivot(ref)
	if err != nil {
		return nil, err
	}

	node := &core.SelectNode{
		SelectList: []core.Expr{&core.StarExpr{}},
		From:       lowered,
	}
	b := l.binder()
	bound, err := b.BindSelect(b.CreateScope(nil), node)
	if err != nil {
		return nil, fmt.Errorf("bind plan: %w", err)
	}

	return &Plan{
		Alias:   lowered.Alias,
		Columns: bound.Names,
		Node:    node,
		SQL:     format.Select(node),
	}, nil
}

type lowerer struct {
	catalog binder.Catalog
	logger  *slog.Logger
}

// binder returns a fresh binder; bound state is never shared between
// declarations.
func (l *lowerer) binder() *binder.Binder {
	return binder.New(l.catalog,
		binder.WithLogger(l.logger),
		binder.WithPivotHandler(pivot.NewHandler(pivot.WithLogger(l.logger))),
	)
}

// pivot rewrites a declaration into the derived table it binds to.
func (l *lowerer) pivot(ref *core.PivotRef) (*core.SubqueryRef, error) {
	decl, ok := core.CopyTableRef(ref).(*core.PivotRef)
	if !ok {
		return nil, fmt.Errorf("unexpected copy of %T", ref)
	}

	source, err := l.tableRef(decl.Source)
	if err != nil {
		return nil, err
	}
	decl.Source = source

	b := l.binder()
	bound, err := b.Bind(b.CreateScope(nil), decl)
	if err != nil {
		return nil, err
	}
	sub, ok := bound.(*binder.BoundSubquery)
	if !ok {
		return nil, fmt.Errorf("pivot bound to %T", bound)
	}

	return &core.SubqueryRef{
		Select:        sub.Select.Node,
		Alias:         sub.Alias,
		ColumnAliases: decl.ColumnAliases,
	}, nil
}

// tableRef lowers nested declarations inside a FROM entry.
func (l *lowerer) tableRef(ref core.TableRef) (core.TableRef, error) {
	switch t := ref.(type) {
	case *core.PivotRef:
		sub, err := l.pivot(t)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case *core.SubqueryRef:
		if t.Select == nil || t.Select.From == nil {
			return t, nil
		}
		from, err := l.tableRef(t.Select.From)
		if err != nil {
			return nil, err
		}
		t.Select.From = from
		return t, nil
	default:
		return ref, nil
	}
}
