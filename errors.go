package main

import (
	"errors"
	"fmt"
)

// Error categories. A *CompileError unwraps to exactly one of these, so
// callers can test with errors.Is.
var (
	ErrSymbolNotFound = errors.New("SymbolNotFound")
	ErrRedeclaration  = errors.New("RedeclarationError")
	ErrTypeMismatch   = errors.New("TypeMismatchError")
	ErrInvalidForLoop = errors.New("InvalidForLoopError")
	ErrParamCount     = errors.New("ParamCountError")
)

// CompileError is a fatal diagnostic raised by scope building or semantic
// analysis.
type CompileError struct {
	Kind error
	Line int
	Msg  string
	// RedeclarationError only: line of the first declaration.
	PrevLine int
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[Line %d]: %s: %s", e.Line, e.Kind, e.Msg)
}

func (e *CompileError) Message() string { return e.Msg }
func (e *CompileError) Unwrap() error   { return e.Kind }

func newError(kind error, line int, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// atLine fills in the line of a CompileError raised somewhere that did not
// know the source position, such as a table lookup.
func atLine(err error, line int) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.Line == 0 {
		ce.Line = line
	}
	return err
}
