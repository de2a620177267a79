// Package diag holds the four fatal diagnostic kinds shared across the
// pipeline: LexerError, ParserError, StaticError, and VMError. Every stage
// reports failures through one of these instead of a bare error string, so
// the driver can render a "<kind>: <message>" line followed by the
// location: line and column for the first three kinds, function and pc
// for VMError.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// LexerError is raised by the lexer on an unrecognized character, a
// malformed numeric/char/string literal, or an unterminated literal.
type LexerError struct {
	Message string
	Line    int
	Column  int
	cause   error
}

func NewLexerError(line, column int, format string, args ...any) *LexerError {
	return &LexerError{Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}

func (e *LexerError) Error() string {
	return fmt.Sprintf("LexerError: %s at line %d, column %d", e.Message, e.Line, e.Column)
}

func (e *LexerError) Unwrap() error { return e.cause }

// ParserError is raised on a token mismatch during recursive-descent
// parsing. Message carries "<expected> found '<lexeme>'".
type ParserError struct {
	Message string
	Line    int
	Column  int
}

func NewParserError(line, column int, format string, args ...any) *ParserError {
	return &ParserError{Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("ParserError: %s at line %d, column %d", e.Message, e.Line, e.Column)
}

// StaticError is raised by the semantic checker when a program violates a
// scoping, typing, or structural rule.
type StaticError struct {
	Message string
	Line    int
	Column  int
}

func NewStaticError(line, column int, format string, args ...any) *StaticError {
	return &StaticError{Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}

func (e *StaticError) Error() string {
	return fmt.Sprintf("StaticError: %s near line %d, column %d", e.Message, e.Line, e.Column)
}

// VMError is raised by the virtual machine on a runtime failure: a null
// dereference, an out-of-bounds access, a division by zero, or a failed
// built-in conversion. It is annotated with the offending frame and the
// program counter of the faulting instruction.
type VMError struct {
	Message  string
	Function string
	PC       int
}

func NewVMError(function string, pc int, format string, args ...any) *VMError {
	return &VMError{Message: fmt.Sprintf(format, args...), Function: function, PC: pc}
}

func (e *VMError) Error() string {
	return fmt.Sprintf("VMError: %s (in %s at pc %d)", e.Message, e.Function, e.PC)
}

// Wrap annotates a lower-level error (e.g. an os.Open failure while reading
// the script file) with additional context using github.com/pkg/errors,
// preserving the ability to unwrap back to the original cause.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
