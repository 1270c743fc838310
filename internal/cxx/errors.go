package cxx

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// SyntaxError is a problem found while reading a declaration. The front end
// turns it into an error diagnostic and skips the declaration.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("cxx: %d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func errorAt(pos lexer.Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

// positioned is implemented by participle and lexer errors.
type positioned interface {
	Position() lexer.Position
	Message() string
}

// asSyntaxError converts any error from parsing into a SyntaxError,
// using at when the error carries no position.
func asSyntaxError(err error, at lexer.Position) *SyntaxError {
	var se *SyntaxError
	if errors.As(err, &se) {
		return se
	}
	var pe positioned
	if errors.As(err, &pe) {
		pos := pe.Position()
		return &SyntaxError{Line: pos.Line, Column: pos.Column, Message: pe.Message(), Err: err}
	}
	return &SyntaxError{Line: at.Line, Column: at.Column, Message: err.Error(), Err: err}
}
