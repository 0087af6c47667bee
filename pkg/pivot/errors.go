package pivot

import (
	"fmt"

	"github.com/leapstack-labs/pivotsql/pkg/core"
)

// SemanticError reports an invalid PIVOT or UNPIVOT declaration.
type SemanticError struct {
	In  core.Node // Offending node, if known
	Msg string
}

func (e *SemanticError) Error() string { return e.Msg }

// TypeError reports a pivot domain that is not an enumerated type.
type TypeError struct {
	Name string
	Msg  string
	Err  error
}

func (e *TypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TypeError) Unwrap() error { return e.Err }

// InternalError reports a broken invariant. It indicates a bug, never
// invalid input.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "INTERNAL Error: " + e.Msg }

func semanticf(in core.Node, format string, args ...any) error {
	return &SemanticError{In: in, Msg: fmt.Sprintf(format, args...)}
}

func internalf(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}
