package grammar

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/kdl/ast"
)

// EOF is returned by the scanner at the end of the input.
const EOF rune = -1

// scanner is a rune cursor over the source text supporting arbitrary
// lookahead and checkpoints.
type scanner struct {
	text string
	pos  ast.Position
}

func newScanner(text string) *scanner {
	return &scanner{text: text, pos: ast.Position{Line: 1, Column: 1}}
}

// Peek at the next rune without consuming it.
func (s *scanner) peek() rune {
	return s.peekN(0)
}

// Peek at the rune n runes ahead of the cursor.
func (s *scanner) peekN(n int) rune {
	offset := s.pos.Offset
	for {
		if offset >= len(s.text) {
			return EOF
		}
		r, size := utf8.DecodeRuneInString(s.text[offset:])
		if n == 0 {
			return r
		}
		n--
		offset += size
	}
}

// Next consumes and returns the next rune.
func (s *scanner) next() rune {
	if s.pos.Offset >= len(s.text) {
		return EOF
	}
	r, size := utf8.DecodeRuneInString(s.text[s.pos.Offset:])
	s.pos.Offset += size
	switch {
	case r == '\r' && s.peek() == '\n':
		// CRLF is a single newline, counted when the LF is consumed.
		s.pos.Column++
	case isNewline(r):
		s.pos.Line++
		s.pos.Column = 1
	default:
		s.pos.Column++
	}
	return r
}

// Consume n runes.
func (s *scanner) skip(n int) {
	for i := 0; i < n; i++ {
		s.next()
	}
}

func (s *scanner) eof() bool {
	return s.pos.Offset >= len(s.text)
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.text[s.pos.Offset:], prefix)
}

// Checkpoint returns the current cursor, suitable for restore().
func (s *scanner) checkpoint() ast.Position {
	return s.pos
}

func (s *scanner) restore(pos ast.Position) {
	s.pos = pos
}

// Span from start to the current cursor.
func (s *scanner) span(start ast.Position) ast.Span {
	return ast.Span{Start: start, End: s.pos}
}

// Text from start to the current cursor.
func (s *scanner) textFrom(start ast.Position) string {
	return s.text[start.Offset:s.pos.Offset]
}

// invalidUTF8 returns the span of each run of bytes in the text that is not
// valid UTF-8.
func (s *scanner) invalidUTF8() []ast.Span {
	if utf8.ValidString(s.text) {
		return nil
	}
	var (
		spans []ast.Span
		cur   = newScanner(s.text)
		bad   = false
	)
	for !cur.eof() {
		r, size := utf8.DecodeRuneInString(cur.text[cur.pos.Offset:])
		if r != utf8.RuneError || size != 1 {
			bad = false
			cur.next()
			continue
		}
		if bad {
			last := &spans[len(spans)-1]
			last.End.Offset++
			last.End.Column++
		} else {
			start := cur.pos
			spans = append(spans, ast.Span{Start: start, End: ast.Position{Offset: start.Offset + 1, Line: start.Line, Column: start.Column + 1}})
		}
		bad = true
		cur.next()
	}
	return spans
}
