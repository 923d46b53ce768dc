// Package grammar implements a recursive-descent parser for KDL documents.
//
// The parser is scannerless: whitespace, comments and literals are
// recognised directly on the rune stream. Syntax errors do not stop the
// parse; the parser resynchronises at the next node terminator and keeps
// going so that one pass reports as many errors as possible.
package grammar

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kdl/ast"
)

// DefaultMaxErrors is the number of syntax errors after which parsing stops.
const DefaultMaxErrors = 100

// An Option to modify the behaviour of the parser.
type Option func(p *parser)

// Trace the parse to "w".
func Trace(w io.Writer) Option {
	return func(p *parser) {
		p.trace = w
	}
}

// MaxErrors sets the number of errors after which parsing is abandoned.
func MaxErrors(n int) Option {
	return func(p *parser) {
		p.maxErrors = n
	}
}

type parser struct {
	*scanner
	errors    []*Error
	maxErrors int
	trace     io.Writer
	indent    int
}

func newParser(text string, options []Option) *parser {
	p := &parser{scanner: newScanner(text), maxErrors: DefaultMaxErrors}
	for _, option := range options {
		option(p)
	}
	return p
}

// Parse text into a Document.
//
// If any syntax errors are encountered the returned error is a
// *RecoveryError holding all of them and no Document is returned.
func Parse(text string, options ...Option) (*ast.Document, error) {
	p := newParser(text, options)
	if !p.validEncoding() {
		return nil, p.err()
	}
	doc := &ast.Document{Nodes: p.nodes(false)}
	if err := p.err(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseValue parses a single, optionally typed, value such as `(u8)10`.
func ParseValue(text string, options ...Option) (*ast.Value, error) {
	p := newParser(text, options)
	if !p.validEncoding() {
		return nil, p.err()
	}
	value, err := p.value()
	if err != nil {
		p.report(err)
	} else if !p.eof() {
		p.report(Errorf(ast.SpanAt(p.checkpoint()), "unexpected %s after value", describe(p.peek())))
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	return value, nil
}

// validEncoding reports every run of invalid UTF-8 in the text.
func (p *parser) validEncoding() bool {
	spans := p.invalidUTF8()
	for _, span := range spans {
		p.report(Errorf(span, "invalid UTF-8 encoding"))
	}
	return len(spans) == 0
}

func (p *parser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return &RecoveryError{Errors: p.errors}
}

func (p *parser) report(err error) {
	if len(p.errors) >= p.maxErrors {
		return
	}
	if perr, ok := err.(*Error); ok {
		p.errors = append(p.errors, perr)
		return
	}
	p.errors = append(p.errors, Errorf(ast.SpanAt(p.checkpoint()), "%s", err))
}

func (p *parser) tooManyErrors() bool {
	return len(p.errors) >= p.maxErrors
}

func (p *parser) traceRule(rule string) func() {
	if p.trace == nil {
		return func() {}
	}
	ahead := p.text[p.pos.Offset:]
	if len(ahead) > 10 {
		ahead = ahead[:10]
	}
	fmt.Fprintf(p.trace, "%s%s %q %s\n", strings.Repeat(" ", p.indent), p.pos, ahead, rule)
	p.indent += 2
	return func() { p.indent -= 2 }
}

// nodes parses nodes until the end of input or, inside a block, until "}".
func (p *parser) nodes(inBlock bool) []*ast.Node {
	nodes := []*ast.Node{}
	for !p.tooManyErrors() {
		if err := p.lineSpace(); err != nil {
			p.report(err)
			p.recover()
			continue
		}
		if p.eof() {
			break
		}
		if p.peek() == '}' {
			if inBlock {
				break
			}
			p.report(Errorf(p.span(p.checkpoint()), "unexpected `}` outside of a children block"))
			p.next()
			continue
		}
		node, err := p.node()
		if err != nil {
			p.report(err)
			p.recover()
			continue
		}
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// slashdash consumes a "/-" comment marker and any following node space.
func (p *parser) slashdash() (bool, error) {
	if !p.hasPrefix("/-") {
		return false, nil
	}
	p.skip(2)
	_, err := p.nodeSpace()
	return true, err
}

// atTerminator returns true if the cursor is at something that ends a node.
func (p *parser) atTerminator() bool {
	r := p.peek()
	return r == EOF || r == ';' || r == '}' || isNewline(r) || p.hasPrefix("//")
}

// node parses a single node and its terminator. A nil node is returned if
// the node was commented out with "/-".
func (p *parser) node() (*ast.Node, error) {
	defer p.traceRule("node")()
	discard, err := p.slashdash()
	if err != nil {
		return nil, err
	}
	start := p.checkpoint()
	node := &ast.Node{}
	if p.peek() == '(' {
		if node.Type, err = p.typeName(); err != nil {
			return nil, err
		}
	}
	if node.Name, err = p.identifier("node name"); err != nil {
		return nil, err
	}
	for {
		spaced, err := p.nodeSpace()
		if err != nil {
			return nil, err
		}
		if p.atTerminator() {
			break
		}
		dashed, err := p.slashdash()
		if err != nil {
			return nil, err
		}
		if !dashed && !spaced && p.peek() != '{' {
			return nil, Errorf(ast.SpanAt(p.checkpoint()), "expected whitespace, found %s", describe(p.peek()))
		}
		if p.peek() == '{' {
			children, err := p.children()
			if err != nil {
				return nil, err
			}
			if dashed {
				continue
			}
			if node.Children != nil {
				return nil, Errorf(p.span(start), "node `%s` has more than one children block", node.Name.Value)
			}
			node.Children = children
			continue
		}
		if node.Children != nil && !dashed {
			return nil, Errorf(ast.SpanAt(p.checkpoint()), "unexpected %s after children block", describe(p.peek()))
		}
		if err := p.argumentOrProperty(node, dashed); err != nil {
			return nil, err
		}
	}
	p.terminator()
	node.Span = p.span(start)
	if discard {
		return nil, nil
	}
	return node, nil
}

func (p *parser) terminator() {
	switch {
	case p.peek() == ';':
		p.next()
	case p.singleLineComment():
	default:
		p.newline()
	}
}

// argumentOrProperty parses one argument or "name=value" property into node.
func (p *parser) argumentOrProperty(node *ast.Node, discard bool) error {
	start := p.checkpoint()
	if p.peek() == '"' || p.atRawString() || p.atBareIdentifier() {
		cp := p.checkpoint()
		reported := len(p.errors)
		name, err := p.identifier("property name")
		if err == nil && p.peek() == '=' {
			p.next()
			value, err := p.value()
			if err != nil {
				return err
			}
			if !discard {
				node.SetProperty(name, value)
			}
			return nil
		}
		// Escape errors are reported again when the value is parsed.
		p.restore(cp)
		p.errors = p.errors[:reported]
		if p.atBareIdentifier() {
			word := p.bareWord()
			if word != "true" && word != "false" && word != "null" {
				return Errorf(p.span(start), "unexpected identifier `%s`, arguments must be quoted", word)
			}
			p.restore(cp)
		}
	}
	value, err := p.value()
	if err != nil {
		return err
	}
	if !discard {
		node.Arguments = append(node.Arguments, value)
	}
	return nil
}

// children parses a "{ ... }" block.
func (p *parser) children() ([]*ast.Node, error) {
	defer p.traceRule("children")()
	start := p.checkpoint()
	p.next() // {
	children := p.nodes(true)
	if p.peek() != '}' {
		if p.tooManyErrors() {
			return nil, Errorf(p.span(start), "too many errors")
		}
		return nil, Errorf(ast.SpanAt(start), "unclosed children block, expected `}`")
	}
	p.next()
	return children, nil
}
