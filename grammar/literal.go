package grammar

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/alecthomas/kdl/ast"
)

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentifierChar(r rune) bool {
	if r <= 0x20 || r == EOF || isWhitespace(r) || isNewline(r) {
		return false
	}
	return !strings.ContainsRune(`\/(){}<>;[]=,"`, r)
}

// Does a bare identifier start at the cursor?
func (p *parser) atBareIdentifier() bool {
	r := p.peek()
	if !isIdentifierChar(r) || isDigit(r) {
		return false
	}
	if r == '-' || r == '+' {
		return !isDigit(p.peekN(1))
	}
	return true
}

// Does a number start at the cursor?
func (p *parser) atNumber() bool {
	r := p.peek()
	if r == '-' || r == '+' {
		r = p.peekN(1)
	}
	return isDigit(r)
}

// Does a raw string start at the cursor?
func (p *parser) atRawString() bool {
	if p.peek() != 'r' {
		return false
	}
	for i := 1; ; i++ {
		switch p.peekN(i) {
		case '#':
		case '"':
			return true
		default:
			return false
		}
	}
}

func (p *parser) bareWord() string {
	start := p.checkpoint()
	for isIdentifierChar(p.peek()) {
		p.next()
	}
	return p.textFrom(start)
}

// identifier parses a bare or quoted identifier.
func (p *parser) identifier(what string) (ast.Ident, error) {
	defer p.traceRule("identifier")()
	start := p.checkpoint()
	switch {
	case p.peek() == '"' || p.atRawString():
		s, err := p.string()
		if err != nil {
			return ast.Ident{}, err
		}
		return ast.Ident{Span: p.span(start), Value: s}, nil

	case p.atBareIdentifier():
		word := p.bareWord()
		switch word {
		case "true", "false", "null":
			return ast.Ident{}, Errorf(p.span(start), "keyword `%s` cannot be used as %s, quote it", word, what)
		}
		return ast.Ident{Span: p.span(start), Value: word}, nil
	}
	if p.atNumber() {
		p.bareWord()
		return ast.Ident{}, Errorf(p.span(start), "%s cannot start with a digit", what)
	}
	return ast.Ident{}, Errorf(ast.SpanAt(start), "expected %s, found %s", what, describe(p.peek()))
}

// typeName parses a "(name)" annotation.
func (p *parser) typeName() (*ast.TypeName, error) {
	start := p.checkpoint()
	p.next() // (
	name, err := p.identifier("type name")
	if err != nil {
		return nil, err
	}
	if p.peek() != ')' {
		return nil, Errorf(ast.SpanAt(p.checkpoint()), "expected `)`, found %s", describe(p.peek()))
	}
	p.next()
	return &ast.TypeName{Span: p.span(start), Name: name.Value}, nil
}

// value parses an optionally typed literal.
func (p *parser) value() (*ast.Value, error) {
	defer p.traceRule("value")()
	start := p.checkpoint()
	value := &ast.Value{}
	if p.peek() == '(' {
		typ, err := p.typeName()
		if err != nil {
			return nil, err
		}
		value.Type = typ
	}
	litStart := p.checkpoint()
	lit, err := p.literal()
	if err != nil {
		return nil, err
	}
	value.Literal = lit
	value.LiteralSpan = p.span(litStart)
	value.Span = p.span(start)
	return value, nil
}

func (p *parser) literal() (ast.Literal, error) {
	start := p.checkpoint()
	switch {
	case p.peek() == '"' || p.atRawString():
		s, err := p.string()
		if err != nil {
			return nil, err
		}
		return ast.String(s), nil

	case p.atNumber():
		return p.number()

	case p.atBareIdentifier():
		word := p.bareWord()
		switch word {
		case "true":
			return ast.Bool(true), nil
		case "false":
			return ast.Bool(false), nil
		case "null":
			return ast.Null{}, nil
		}
		return nil, Errorf(p.span(start), "unexpected identifier `%s`, values must be quoted", word)
	}
	return nil, Errorf(ast.SpanAt(start), "expected value, found %s", describe(p.peek()))
}

// string parses an escaped or raw string.
func (p *parser) string() (string, error) {
	if p.peek() == 'r' {
		return p.rawString()
	}
	start := p.checkpoint()
	p.next() // "
	out := &strings.Builder{}
	for {
		r := p.peek()
		switch r {
		case EOF:
			return "", Errorf(p.span(start), "unclosed string")
		case '"':
			p.next()
			return out.String(), nil
		case '\\':
			p.escape(out)
		default:
			out.WriteRune(p.next())
		}
	}
}

var escapes = map[rune]rune{
	'n': '\n', 'r': '\r', 't': '\t', '\\': '\\', '/': '/', '"': '"', 'b': '\b', 'f': '\f',
}

// escape decodes one escape sequence into out. Invalid escapes are reported
// without abandoning the string.
func (p *parser) escape(out *strings.Builder) {
	start := p.checkpoint()
	p.next() // \
	r := p.next()
	if c, ok := escapes[r]; ok {
		out.WriteRune(c)
		return
	}
	if r != 'u' {
		p.report(Errorf(p.span(start), "invalid escape sequence %s", strconv.Quote(p.textFrom(start))))
		return
	}
	if p.peek() != '{' {
		p.report(Errorf(p.span(start), "expected `{` after `\\u`"))
		return
	}
	p.next()
	digits := &strings.Builder{}
	for digits.Len() < 7 && unicode.Is(unicode.ASCII_Hex_Digit, p.peek()) {
		digits.WriteRune(p.next())
	}
	if p.peek() != '}' || digits.Len() == 0 || digits.Len() > 6 {
		p.report(Errorf(p.span(start), "unicode escape must be 1 to 6 hex digits in braces"))
		return
	}
	p.next()
	code, _ := strconv.ParseUint(digits.String(), 16, 32)
	if code > unicode.MaxRune || (code >= 0xD800 && code <= 0xDFFF) {
		p.report(Errorf(p.span(start), "invalid unicode code point %s", p.textFrom(start)))
		return
	}
	out.WriteRune(rune(code))
}

func (p *parser) rawString() (string, error) {
	start := p.checkpoint()
	p.next() // r
	hashes := 0
	for p.peek() == '#' {
		p.next()
		hashes++
	}
	p.next() // "
	closing := `"` + strings.Repeat("#", hashes)
	bodyStart := p.checkpoint()
	for {
		if p.eof() {
			return "", Errorf(p.span(start), "unclosed raw string")
		}
		if p.hasPrefix(closing) {
			body := p.textFrom(bodyStart)
			p.skip(len(closing))
			return body, nil
		}
		p.next()
	}
}

// number parses an integer or decimal literal.
func (p *parser) number() (ast.Literal, error) {
	defer p.traceRule("number")()
	start := p.checkpoint()
	sign := ""
	if r := p.peek(); r == '-' || r == '+' {
		sign = string(p.next())
	}
	var lit ast.Literal
	var err error
	switch {
	case p.hasPrefix("0x"):
		lit, err = p.radixDigits(start, sign, ast.Hex, func(r rune) bool { return unicode.Is(unicode.ASCII_Hex_Digit, r) })
	case p.hasPrefix("0o"):
		lit, err = p.radixDigits(start, sign, ast.Oct, func(r rune) bool { return r >= '0' && r <= '7' })
	case p.hasPrefix("0b"):
		lit, err = p.radixDigits(start, sign, ast.Bin, func(r rune) bool { return r == '0' || r == '1' })
	default:
		lit = p.decimal(sign)
	}
	if err != nil {
		return nil, err
	}
	if isIdentifierChar(p.peek()) {
		p.bareWord()
		return nil, Errorf(p.span(start), "invalid number `%s`", p.textFrom(start))
	}
	return lit, nil
}

func (p *parser) radixDigits(start ast.Position, sign string, radix ast.Radix, digit func(rune) bool) (ast.Literal, error) {
	p.skip(2)
	if !digit(p.peek()) {
		p.bareWord()
		return nil, Errorf(p.span(start), "invalid number `%s`, expected digits after prefix", p.textFrom(start))
	}
	digits := p.digits(digit)
	return ast.Integer{Radix: radix, Digits: sign + digits}, nil
}

// digits consumes digits and "_" separators, returning the digits only.
func (p *parser) digits(digit func(rune) bool) string {
	out := &strings.Builder{}
	for {
		r := p.peek()
		switch {
		case digit(r):
			out.WriteRune(p.next())
		case r == '_':
			p.next()
		default:
			return out.String()
		}
	}
}

func (p *parser) decimal(sign string) ast.Literal {
	mantissa := sign + p.digits(isDigit)
	isDecimal := false
	if p.peek() == '.' && isDigit(p.peekN(1)) {
		p.next()
		mantissa += "." + p.digits(isDigit)
		isDecimal = true
	}
	exponent := ""
	if r := p.peek(); r == 'e' || r == 'E' {
		cp := p.checkpoint()
		p.next()
		expSign := ""
		if r := p.peek(); r == '-' || r == '+' {
			expSign = string(p.next())
		}
		if isDigit(p.peek()) {
			exponent = expSign + p.digits(isDigit)
			isDecimal = true
		} else {
			p.restore(cp)
		}
	}
	if !isDecimal {
		return ast.Integer{Radix: ast.Dec, Digits: mantissa}
	}
	return ast.Decimal{Mantissa: mantissa, Exponent: exponent}
}
