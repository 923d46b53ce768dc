package ast

import "fmt"

// Position of a rune in the source text.
type Position struct {
	// Byte offset from the start of the text.
	Offset int
	Line   int
	Column int
}

func (p Position) GoString() string {
	return fmt.Sprintf("Position{Offset: %d, Line: %d, Column: %d}", p.Offset, p.Line, p.Column)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open range of the source text.
//
// Spans are only ever used for diagnostics.
type Span struct {
	Start Position
	End   Position
}

// SpanAt returns a zero-width span at pos.
func SpanAt(pos Position) Span {
	return Span{Start: pos, End: pos}
}

// Join returns the smallest span enclosing both s and other.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start.Offset < out.Start.Offset {
		out.Start = other.Start
	}
	if other.End.Offset > out.End.Offset {
		out.End = other.End
	}
	return out
}

// Len is the length of the span in bytes.
func (s Span) Len() int { return s.End.Offset - s.Start.Offset }

// IsZero returns true if the span was never set.
func (s Span) IsZero() bool { return s == Span{} }

func (s Span) GoString() string {
	return fmt.Sprintf("Span(%d, %d)", s.Start.Offset, s.End.Offset)
}

// String renders the span as a "line:col" locator.
func (s Span) String() string {
	return s.Start.String()
}
