package kdl

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/alecthomas/kdl/ast"
	"github.com/alecthomas/kdl/grammar"
)

// Error represents an error while parsing or decoding.
//
// The error will contain span information if available.
type Error interface {
	error
	// Unadorned message.
	Message() string
	// Span of the offending source text. False if the error is not tied
	// to any location, eg. a required node missing from the document.
	Span() (ast.Span, bool)
}

var (
	_ Error = &DecodeError{}
	_ Error = &grammar.Error{}
)

// ErrorKind classifies a DecodeError.
type ErrorKind int

// Kinds of DecodeError.
const (
	// ErrCustom is raised by user supplied decoders.
	ErrCustom ErrorKind = iota
	// ErrConversion is a value of the right kind that could not be converted.
	ErrConversion
	// ErrScalarKind is a value of the wrong kind, eg. an integer where a string is expected.
	ErrScalarKind
	// ErrTypeName is an unexpected or missing type annotation.
	ErrTypeName
	// ErrMissing is a required argument, property or child that is absent.
	ErrMissing
	// ErrDuplicate is a child node that appears more than once.
	ErrDuplicate
	// ErrUnexpected is an argument, property or child with no field to absorb it.
	ErrUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrCustom:
		return "custom"
	case ErrConversion:
		return "conversion"
	case ErrScalarKind:
		return "scalar kind"
	case ErrTypeName:
		return "type name"
	case ErrMissing:
		return "missing"
	case ErrDuplicate:
		return "duplicate"
	case ErrUnexpected:
		return "unexpected"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// DecodeError is an error raised while decoding the AST.
type DecodeError struct {
	Kind ErrorKind
	Msg  string
	At   ast.Span
	// Global errors are not tied to a location in the source.
	Global bool
	// Err is the underlying cause, if any.
	Err error
}

// Errorf creates a new DecodeError at the given span.
func Errorf(span ast.Span, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: ErrCustom, Msg: fmt.Sprintf(format, args...), At: span}
}

// Wrapf wraps an existing error with a span and a message.
//
// The resulting message is "<message>: <err>".
func Wrapf(span ast.Span, err error, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: ErrCustom, Msg: fmt.Sprintf(format, args...) + ": " + err.Error(), At: span, Err: err}
}

// AnnotateError attaches a span to an error.
//
// If the error already implements Error it is returned unmodified.
func AnnotateError(span ast.Span, err error) Error {
	var kerr Error
	if errors.As(err, &kerr) {
		return kerr
	}
	return &DecodeError{Kind: ErrCustom, Msg: err.Error(), At: span, Err: err}
}

func (e *DecodeError) Error() string {
	if e.Global {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.At.Start, e.Msg)
}

func (e *DecodeError) Message() string { return e.Msg }

func (e *DecodeError) Span() (ast.Span, bool) { return e.At, !e.Global }

func (e *DecodeError) Unwrap() error { return e.Err }

func conversionError(span ast.Span, err error, format string, args ...interface{}) *DecodeError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg += ": " + err.Error()
	}
	return &DecodeError{Kind: ErrConversion, Msg: msg, At: span, Err: err}
}

func scalarKindError(span ast.Span, expected string, found ast.Literal) *DecodeError {
	return &DecodeError{
		Kind: ErrScalarKind,
		Msg:  fmt.Sprintf("expected %s, found %s", expected, found.Kind()),
		At:   span,
	}
}

func typeNameError(typ *ast.TypeName, expected []ast.BuiltinType) *DecodeError {
	want := "no type name"
	if len(expected) > 0 {
		names := make([]string, 0, len(expected))
		for _, b := range expected {
			names = append(names, "`"+string(b)+"`")
		}
		want = strings.Join(names, " or ")
	}
	return &DecodeError{
		Kind: ErrTypeName,
		Msg:  fmt.Sprintf("unexpected type name `%s`, expected %s", typ.Name, want),
		At:   typ.Span,
	}
}

func missingError(span *ast.Span, format string, args ...interface{}) *DecodeError {
	err := &DecodeError{Kind: ErrMissing, Msg: fmt.Sprintf(format, args...), Global: span == nil}
	if span != nil {
		err.At = *span
	}
	return err
}

func duplicateError(span ast.Span, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: ErrDuplicate, Msg: fmt.Sprintf(format, args...), At: span}
}

func unexpectedError(span ast.Span, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: ErrUnexpected, Msg: fmt.Sprintf(format, args...), At: span}
}

// BuildError is returned when a type can not be used as a decoding target.
type BuildError struct {
	Type  reflect.Type
	Field string
	Msg   string
}

func (b *BuildError) Error() string {
	if b.Field == "" {
		return fmt.Sprintf("%s: %s", b.Type, b.Msg)
	}
	return fmt.Sprintf("%s.%s: %s", b.Type, b.Field, b.Msg)
}

func buildErrorf(t reflect.Type, field string, format string, args ...interface{}) *BuildError {
	return &BuildError{Type: t, Field: field, Msg: fmt.Sprintf(format, args...)}
}
