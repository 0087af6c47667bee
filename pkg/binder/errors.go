package binder

import "errors"

// ErrNotFound is returned by catalogs for unknown tables and types.
var ErrNotFound = errors.New("not found")

// ResolutionError reports a name that could not be resolved, or a
// registration that conflicts with an existing binding.
type ResolutionError struct {
	Msg string
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }
