package grammar

// recoveryStrategy resynchronises the parser after a syntax error.
//
// There is no silver bullet strategy for error recovery. The node grammar
// of KDL has clear terminators, so panic-mode recovery that skips to the
// end of the broken node works well in practice.
type recoveryStrategy interface {
	// recover advances the cursor past the erroneous input, returning false
	// if no synchronisation point was found before the end of input.
	recover(p *parser) bool
}

// skipPastStrategy skips input until a node terminator at nesting depth
// zero, consuming the terminator.
//
// Children blocks, strings and comments inside the skipped region are
// skipped as a whole, so a terminator inside them does not end recovery.
// An unbalanced closing delimiter is left unconsumed, as it terminates the
// enclosing block.
type skipPastStrategy struct {
	open, close rune
}

func (s skipPastStrategy) recover(p *parser) bool {
	depth := 0
	for {
		r := p.peek()
		switch {
		case r == EOF:
			return false

		case r == s.open:
			depth++
			p.next()

		case r == s.close:
			if depth == 0 {
				return true
			}
			depth--
			p.next()

		case r == '"' || p.atRawString():
			// Errors inside skipped input have already been reported, or
			// are a consequence of the original error.
			_, _ = p.string()

		case p.hasPrefix("/*"):
			_ = p.multiLineComment()

		case p.hasPrefix("//"):
			p.singleLineComment()
			if depth == 0 {
				return true
			}

		case r == '\\':
			p.next()
			_, _ = p.ws()
			p.newline()

		case r == ';' || isNewline(r):
			if r == ';' {
				p.next()
			} else {
				p.newline()
			}
			if depth == 0 {
				return true
			}

		default:
			p.next()
		}
	}
}

var nodeRecovery recoveryStrategy = skipPastStrategy{open: '{', close: '}'}

// recover from a syntax error, guaranteeing forward progress.
func (p *parser) recover() {
	before := p.checkpoint()
	nodeRecovery.recover(p)
	if p.checkpoint() == before && !p.eof() && p.peek() != '}' {
		p.next()
	}
}
