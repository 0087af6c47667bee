package pivot

import (
	"github.com/leapstack-labs/pivotsql/pkg/binder"
	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// columnSet is an insertion-ordered set of column names compared
// case-insensitively.
type columnSet struct {
	order []string
	names map[string]string // folded -> name as first added
}

func newColumnSet() *columnSet {
	return &columnSet{names: make(map[string]string)}
}

func (s *columnSet) add(name string) {
	key := binder.Fold(name)
	if _, ok := s.names[key]; ok {
		return
	}
	s.names[key] = name
	s.order = append(s.order, key)
}

func (s *columnSet) contains(name string) bool {
	_, ok := s.names[binder.Fold(name)]
	return ok
}

func (s *columnSet) remove(name string) {
	delete(s.names, binder.Fold(name))
}

func (s *columnSet) len() int { return len(s.names) }

// list returns the remaining names in insertion order.
func (s *columnSet) list() []string {
	out := make([]string, 0, len(s.names))
	for _, key := range s.order {
		if name, ok := s.names[key]; ok {
			out = append(out, name)
		}
	}
	return out
}

// extractColumns adds every column referenced by e to set. Pivot and
// aggregate expressions are evaluated against the source alone, so
// qualified references are rejected.
func extractColumns(e core.Expr, set *columnSet) error {
	var err error
	core.Walk(e, func(n core.Expr) bool {
		ref, ok := n.(*core.ColumnRef)
		if !ok {
			return err == nil
		}
		if ref.IsQualified() {
			err = semanticf(ref, "PIVOT expression cannot contain qualified columns")
			return false
		}
		set.add(ref.Column)
		return true
	})
	return err
}
