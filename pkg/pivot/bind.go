package pivot

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// DefaultAlias names pivots declared without an alias.
const DefaultAlias = "__unnamed_pivot"

// Handler binds PIVOT and UNPIVOT references. It implements
// binder.PivotHandler.
type Handler struct {
	logger *slog.Logger
}

var _ binder.PivotHandler = (*Handler)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a pivot handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// BindPivot rewrites ref into a plain query, binds it in a child of
// scope, and registers the result in scope under the declaration's
// alias. ref itself is not modified. On error nothing is registered.
func (h *Handler) BindPivot(b *binder.Binder, scope *binder.Scope, ref *core.PivotRef) (*binder.BoundSubquery, error) {
	if ref.Source == nil {
		return nil, internalf("pivot without a source")
	}

	// The source is bound twice: once here, detached, to learn its
	// columns, and again inside the rewritten query.
	allColumns, err := b.Peek(ref.Source)
	if err != nil {
		return nil, fmt.Errorf("bind pivot source: %w", err)
	}

	decl, ok := core.CopyTableRef(ref).(*core.PivotRef)
	if !ok {
		return nil, internalf("copy of pivot is %T", decl)
	}

	alias := ref.Alias
	if alias == "" {
		alias = DefaultAlias
	}

	var (
		node  *core.SelectNode
		where core.Expr
	)
	if decl.IsUnpivot() {
		node, where, err = rewriteUnpivot(decl, allColumns, nil)
		if err != nil {
			return nil, err
		}
		h.logger.Debug("unpivot rewritten",
			slog.String("alias", alias),
			slog.Int("source_columns", len(allColumns)),
			slog.Bool("filtered", where != nil))
	} else {
		var elements []PivotValueElement
		node, elements, err = rewritePivot(b.Catalog(), decl, allColumns)
		if err != nil {
			return nil, err
		}
		h.logger.Debug("pivot rewritten",
			slog.String("alias", alias),
			slog.Int("source_columns", len(allColumns)),
			slog.Int("pivot_values", len(elements)))
	}

	bound, err := b.BindSelect(b.CreateScope(scope), node)
	if err != nil {
		return nil, fmt.Errorf("bind rewritten pivot %s: %w", alias, err)
	}
	index := b.NextIndex()

	if where != nil {
		// The null filter reads unnested values, so it runs one level up.
		inner := &binder.BoundSubquery{Index: index, Alias: alias, Select: bound}
		wrapper := &core.SelectNode{
			SelectList: []core.Expr{&core.StarExpr{}},
			From:       &core.SubqueryRef{Select: node, Alias: alias},
			Where:      where,
		}
		if bound, err = b.BindSelectOver(b.CreateScope(scope), wrapper, alias, inner); err != nil {
			return nil, fmt.Errorf("bind unpivot filter %s: %w", alias, err)
		}
		index = b.NextIndex()
	}

	if err := b.RegisterSubquery(scope, index, alias, ref.ColumnAliases, bound); err != nil {
		return nil, err
	}

	return &binder.BoundSubquery{
		Index:         index,
		Alias:         alias,
		ColumnAliases: ref.ColumnAliases,
		Select:        bound,
	}, nil
}
