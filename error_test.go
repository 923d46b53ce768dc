package kdl_test

import (
	"errors"
	"io"
	"testing"

	require "github.com/alecthomas/assert/v2"

	"github.com/alecthomas/kdl"
	"github.com/alecthomas/kdl/ast"
)

func span(line, column int) ast.Span {
	start := ast.Position{Line: line, Column: column}
	return ast.Span{Start: start, End: start}
}

func TestErrorf(t *testing.T) {
	err := kdl.Errorf(span(2, 4), "bad %s", "thing")
	require.EqualError(t, err, "2:4: bad thing")
	require.Equal(t, "bad thing", err.Message())
	at, ok := err.Span()
	require.True(t, ok)
	require.Equal(t, span(2, 4), at)
	require.Equal(t, kdl.ErrCustom, err.Kind)
}

func TestWrapf(t *testing.T) {
	err := kdl.Wrapf(span(1, 1), io.EOF, "reading %s", "body")
	require.EqualError(t, err, "1:1: reading body: EOF")
	require.True(t, errors.Is(err, io.EOF))
}

func TestAnnotateError(t *testing.T) {
	err := kdl.AnnotateError(span(3, 2), io.EOF)
	require.EqualError(t, err, "3:2: EOF")

	original := kdl.Errorf(span(1, 1), "original")
	require.Equal(t, kdl.Error(original), kdl.AnnotateError(span(3, 2), original))
}

func TestGlobalError(t *testing.T) {
	err := &kdl.DecodeError{Kind: kdl.ErrMissing, Msg: "child node `a` is required", Global: true}
	require.EqualError(t, err, "child node `a` is required")
	_, ok := err.Span()
	require.False(t, ok)
	require.Equal(t, "missing", err.Kind.String())
}

func TestSourceErrorUnwrap(t *testing.T) {
	_, err := kdl.Parse[[]Pair]("test.kdl", "pair\npair \"a\" \"b\" \"c\"")
	require.EqualError(t, err, "test.kdl:1:1: additional argument `a` is required\n"+
		"test.kdl:2:14: unexpected argument")
	var derr *kdl.DecodeError
	require.True(t, errors.As(err, &derr))
	require.Equal(t, kdl.ErrMissing, derr.Kind)
}

func TestBuildError(t *testing.T) {
	type Bad struct {
		Port int `kdl:"prop"`
	}
	_, err := kdl.Build[[]Bad]()
	var berr *kdl.BuildError
	require.True(t, errors.As(err, &berr))
	require.Equal(t, "Port", berr.Field)
	require.EqualError(t, err, "kdl_test.Bad.Port: unknown role \"prop\"")
}
