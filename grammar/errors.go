package grammar

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kdl/ast"
)

// Error is a syntax error.
type Error struct {
	Msg string
	At  ast.Span
}

// Errorf creates a new Error at the given span.
func Errorf(span ast.Span, format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), At: span}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.At.Start, e.Msg)
}

// Message returns the error without positional information.
func (e *Error) Message() string { return e.Msg }

// Span of the offending text.
func (e *Error) Span() (ast.Span, bool) { return e.At, true }

// RecoveryError holds all the syntax errors found in one pass.
type RecoveryError struct {
	Errors []*Error
}

func (r *RecoveryError) Error() string {
	if len(r.Errors) == 0 {
		return "no errors"
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// Unwrap returns the first error for compatibility with errors.Is/As.
func (r *RecoveryError) Unwrap() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// describe a rune for use in error messages.
func describe(r rune) string {
	switch {
	case r == EOF:
		return "end of input"
	case isNewline(r):
		return "newline"
	case isWhitespace(r):
		return "whitespace"
	}
	return fmt.Sprintf("`%c`", r)
}
