package transform

import "fmt"

// Error reports malformed source at a position in the original text.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func errorAt(t Token, format string, args ...any) *Error {
	return &Error{Line: t.Line, Column: t.Col, Message: fmt.Sprintf(format, args...)}
}
