package binder

import "fmt"

// Binding is a table reference registered in a scope.
type Binding struct {
	Index   int      // Binder-unique table index
	Alias   string   // Name the binding is visible under
	Columns []string // Output columns, after column aliases
	Node    BoundTableRef
}

// hasColumn reports whether the binding exposes the named column.
func (b *Binding) hasColumn(name string) (string, bool) {
	folded := Fold(name)
	for _, c := range b.Columns {
		if Fold(c) == folded {
			return c, true
		}
	}
	return "", false
}

// Scope tracks the table bindings visible to one query level.
// Lookups that fail in a scope continue in its parent.
type Scope struct {
	parent   *Scope
	bindings []*Binding
	byAlias  map[string]*Binding // folded alias -> binding
}

func newScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		byAlias: make(map[string]*Binding),
	}
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Bindings returns the bindings of this scope in registration order.
func (s *Scope) Bindings() []*Binding {
	return append([]*Binding(nil), s.bindings...)
}

// Lookup finds a binding by alias in this scope or any ancestor.
func (s *Scope) Lookup(alias string) (*Binding, bool) {
	folded := Fold(alias)
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.byAlias[folded]; ok {
			return b, true
		}
	}
	return nil, false
}

func (s *Scope) add(b *Binding) error {
	folded := Fold(b.Alias)
	if _, exists := s.byAlias[folded]; exists {
		return &ResolutionError{Msg: fmt.Sprintf("Duplicate alias %q in query", b.Alias)}
	}
	s.bindings = append(s.bindings, b)
	s.byAlias[folded] = b
	return nil
}
