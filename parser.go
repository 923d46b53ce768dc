package kdl

import (
	"errors"
	"io"
	"reflect"

	"github.com/alecthomas/kdl/ast"
	"github.com/alecthomas/kdl/grammar"
)

// A Parser decodes KDL documents into values of type T.
//
// A Parser is safe for concurrent use.
type Parser[T any] struct {
	typ    reflect.Type
	decode childrenDecoder
	config *config
}

// Build a Parser for T.
//
// T must be decodable from a whole document: a struct with only child
// fields, a slice of node-decodable elements, or a ChildrenDecoder.
func Build[T any](options ...Option) (*Parser[T], error) {
	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	b := newBuilder()
	decode, err := b.childrenDecoderFor(t)
	if err != nil {
		var berr *BuildError
		if !errors.As(err, &berr) {
			err = buildErrorf(t, "", "%s", err)
		}
		return nil, err
	}
	b.commit()
	return &Parser[T]{typ: t, decode: decode, config: c}, nil
}

// MustBuild calls Build[T](options...) and panics if an error occurs.
func MustBuild[T any](options ...Option) *Parser[T] {
	p, err := Build[T](options...)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse from r into a T.
//
// "filename" is only used in error messages.
func (p *Parser[T]) Parse(filename string, r io.Reader, options ...Option) (T, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.ParseString(filename, string(data), options...)
}

// ParseBytes parses data into a T.
func (p *Parser[T]) ParseBytes(filename string, data []byte, options ...Option) (T, error) {
	return p.ParseString(filename, string(data), options...)
}

// ParseString parses text into a T.
//
// All syntax errors, or all decode errors, are returned together as a
// *SourceError.
func (p *Parser[T]) ParseString(filename string, text string, options ...Option) (T, error) {
	var zero T
	c, err := p.config.with(options)
	if err != nil {
		return zero, err
	}
	doc, err := parseAST(filename, text, c)
	if err != nil {
		return zero, err
	}
	ctx := NewContext()
	ctx.trace = c.trace
	for _, setup := range c.setup {
		setup(ctx)
	}
	out := reflect.New(p.typ).Elem()
	if err := p.decode(doc.Nodes, out, ctx); err != nil {
		ctx.EmitError(err)
	}
	if errs := ctx.Errors(); len(errs) > 0 {
		return zero, newSourceError(filename, text, errs)
	}
	return out.Interface().(T), nil
}

// Parse text into a T.
//
// The decoding schema of T is built on first use and cached.
func Parse[T any](filename string, text string, options ...Option) (T, error) {
	p, err := Build[T](options...)
	if err != nil {
		var zero T
		return zero, err
	}
	return p.ParseString(filename, text)
}

// ParseWithContext parses text into a T, calling setup on the decode
// Context before decoding starts.
//
// This is how values are made available to custom decoders via Get.
func ParseWithContext[T any](filename string, text string, setup func(ctx *Context), options ...Option) (T, error) {
	return Parse[T](filename, text, append(options, WithContext(setup))...)
}

// ParseAST parses text into a Document without decoding it.
func ParseAST(filename string, text string, options ...Option) (*ast.Document, error) {
	c, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	return parseAST(filename, text, c)
}

func parseAST(filename string, text string, c *config) (*ast.Document, error) {
	doc, err := grammar.Parse(text, c.grammarOptions()...)
	if err != nil {
		var rerr *grammar.RecoveryError
		if errors.As(err, &rerr) {
			errs := make([]error, 0, len(rerr.Errors))
			for _, e := range rerr.Errors {
				errs = append(errs, e)
			}
			return nil, newSourceError(filename, text, errs)
		}
		return nil, err
	}
	return doc, nil
}

// DecodeNode decodes a single node into a new T, for use by custom Decoder
// and ChildrenDecoder implementations.
func DecodeNode[T any](node *ast.Node, ctx *Context) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	b := newBuilder()
	decode, err := b.nodeDecoder(t)
	if err != nil {
		return zero, err
	}
	b.commit()
	out := reflect.New(t).Elem()
	if err := decode(node, out, ctx); err != nil {
		return zero, err
	}
	return out.Interface().(T), nil
}
