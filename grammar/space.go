package grammar

func isNewline(r rune) bool {
	switch r {
	case '\r', '\n', '\x0C', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func isWhitespace(r rune) bool {
	switch {
	case r == '\t', r == ' ', r == '\u00A0', r == '\u1680',
		r >= '\u2000' && r <= '\u200A',
		r == '\u202F', r == '\u205F', r == '\u3000', r == '\uFEFF':
		return true
	}
	return false
}

// newline consumes one logical newline, treating CRLF as one.
func (p *parser) newline() bool {
	r := p.peek()
	if !isNewline(r) {
		return false
	}
	p.next()
	if r == '\r' && p.peek() == '\n' {
		p.next()
	}
	return true
}

// singleLineComment consumes "//" up to and including the next newline.
func (p *parser) singleLineComment() bool {
	if !p.hasPrefix("//") {
		return false
	}
	p.skip(2)
	for !p.eof() {
		if p.newline() {
			break
		}
		p.next()
	}
	return true
}

// multiLineComment consumes a, possibly nested, "/* ... */" comment.
func (p *parser) multiLineComment() error {
	start := p.checkpoint()
	p.skip(2)
	for {
		switch {
		case p.eof():
			return Errorf(p.span(start), "unclosed block comment")
		case p.hasPrefix("/*"):
			if err := p.multiLineComment(); err != nil {
				return err
			}
		case p.hasPrefix("*/"):
			p.skip(2)
			return nil
		default:
			p.next()
		}
	}
}

// ws consumes inline whitespace and block comments, returning true if
// anything was consumed.
func (p *parser) ws() (bool, error) {
	consumed := false
	for {
		switch {
		case isWhitespace(p.peek()):
			p.next()
		case p.hasPrefix("/*"):
			if err := p.multiLineComment(); err != nil {
				return true, err
			}
		default:
			return consumed, nil
		}
		consumed = true
	}
}

// nodeSpace consumes whitespace between the elements of a node, including
// "\" line continuations.
func (p *parser) nodeSpace() (bool, error) {
	consumed := false
	for {
		ok, err := p.ws()
		if err != nil {
			return true, err
		}
		consumed = consumed || ok
		if p.peek() != '\\' {
			return consumed, nil
		}
		start := p.checkpoint()
		p.next()
		if _, err := p.ws(); err != nil {
			return true, err
		}
		if !p.singleLineComment() && !p.newline() && !p.eof() {
			return true, Errorf(p.span(start), "expected newline after line continuation, found %s", describe(p.peek()))
		}
		consumed = true
	}
}

// lineSpace consumes whitespace, newlines and comments between nodes.
func (p *parser) lineSpace() error {
	for {
		if _, err := p.ws(); err != nil {
			return err
		}
		if !p.newline() && !p.singleLineComment() {
			return nil
		}
	}
}
