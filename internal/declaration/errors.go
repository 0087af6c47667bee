package declaration

import "fmt"

// ParseError reports a malformed declaration document.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		if e.Line > 0 {
			return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// UnknownFieldError reports a key the declaration format does not define.
type UnknownFieldError struct {
	File    string
	Line    int
	Field   string
	Context string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in %s", e.Field, e.Context)
	if e.File != "" {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, msg)
}
