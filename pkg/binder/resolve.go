package binder

import (
	"fmt"

	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// bindExpr resolves every column reference in e. Scalar subqueries are
// bound in a child scope, so they may reference columns of scope.
func (b *Binder) bindExpr(scope *Scope, e core.Expr) error {
	var err error
	core.Walk(e, func(n core.Expr) bool {
		if err != nil {
			return false
		}
		switch x := n.(type) {
		case *core.ColumnRef:
			_, err = ResolveColumn(scope, x)
		case *core.SubqueryExpr:
			_, err = b.BindSelect(b.CreateScope(scope), x.Select)
		case *core.StarExpr:
			err = &ResolutionError{Msg: "* can only be used in the select list"}
		}
		return err == nil
	})
	return err
}

// ResolveColumn finds the binding a column reference belongs to.
//
// Qualified references are looked up by alias. Unqualified references are
// searched in scope first, then in each enclosing scope; a name exposed by
// more than one binding of the same scope is ambiguous.
func ResolveColumn(scope *Scope, ref *core.ColumnRef) (*Binding, error) {
	if ref.IsQualified() {
		binding, ok := scope.Lookup(ref.Table)
		if !ok {
			return nil, &ResolutionError{Msg: fmt.Sprintf("Referenced table %q not found", ref.Table)}
		}
		if _, ok := binding.hasColumn(ref.Column); !ok {
			return nil, &ResolutionError{Msg: fmt.Sprintf("Table %q does not have a column named %q", ref.Table, ref.Column)}
		}
		return binding, nil
	}

	for cur := scope; cur != nil; cur = cur.parent {
		var found []*Binding
		for _, binding := range cur.bindings {
			if _, ok := binding.hasColumn(ref.Column); ok {
				found = append(found, binding)
			}
		}
		switch len(found) {
		case 0:
			continue
		case 1:
			return found[0], nil
		default:
			return nil, &ResolutionError{Msg: fmt.Sprintf(
				"Ambiguous reference to column name %q (use: %q or %q)",
				ref.Column, found[0].Alias+"."+ref.Column, found[1].Alias+"."+ref.Column)}
		}
	}
	return nil, &ResolutionError{Msg: fmt.Sprintf("Referenced column %q not found in FROM clause", ref.Column)}
}
