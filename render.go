package kdl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/alecthomas/kdl/ast"
)

// SourceError is the aggregate of all errors from parsing or decoding a
// single source.
type SourceError struct {
	Filename string
	Source   string
	Errors   []Error
}

func newSourceError(filename, source string, errs []error) *SourceError {
	out := &SourceError{Filename: filename, Source: source}
	for _, err := range errs {
		var kerr Error
		if !errors.As(err, &kerr) {
			kerr = &DecodeError{Kind: ErrCustom, Msg: err.Error(), Global: true, Err: err}
		}
		out.Errors = append(out.Errors, kerr)
	}
	return out
}

func (s *SourceError) Error() string {
	lines := make([]string, 0, len(s.Errors))
	for _, err := range s.Errors {
		if span, ok := err.Span(); ok {
			lines = append(lines, fmt.Sprintf("%s:%s: %s", s.Filename, span.Start, err.Message()))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", s.Filename, err.Message()))
		}
	}
	return strings.Join(lines, "\n")
}

// Unwrap returns the individual errors.
func (s *SourceError) Unwrap() []error {
	out := make([]error, 0, len(s.Errors))
	for _, err := range s.Errors {
		out = append(out, err)
	}
	return out
}

// Render each error to w, with the offending source line underlined.
//
//	error: unexpected node `foo`
//	 --> config.kdl:3:1
//	  |
//	3 | foo 1 2
//	  | ^^^^^^^
func (s *SourceError) Render(w io.Writer, colour bool) error {
	var (
		label  = color.New(color.FgRed, color.Bold)
		bold   = color.New(color.Bold)
		gutter = color.New(color.FgBlue, color.Bold)
	)
	for _, c := range []*color.Color{label, bold, gutter} {
		if colour {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	for i, err := range s.Errors {
		if i > 0 {
			if _, werr := fmt.Fprintln(w); werr != nil {
				return werr
			}
		}
		if werr := s.render(w, err, label, bold, gutter); werr != nil {
			return werr
		}
	}
	return nil
}

func (s *SourceError) render(w io.Writer, err Error, label, bold, gutter *color.Color) error {
	span, ok := err.Span()
	if !ok {
		_, werr := fmt.Fprintf(w, "%s%s\n %s %s\n", label.Sprint("error"), bold.Sprint(": "+err.Message()), gutter.Sprint("-->"), s.Filename)
		return werr
	}
	line, prefix, underline := s.sourceLine(span)
	number := strconv.Itoa(span.Start.Line)
	pad := strings.Repeat(" ", len(number))
	_, werr := fmt.Fprintf(w,
		"%s%s\n"+
			"%s%s %s:%s\n"+
			"%s %s\n"+
			"%s %s\n"+
			"%s %s%s\n",
		label.Sprint("error"), bold.Sprint(": "+err.Message()),
		pad, gutter.Sprint("-->"), s.Filename, span.Start,
		pad, gutter.Sprint("|"),
		gutter.Sprint(number+" |"), line,
		pad, gutter.Sprint("| "), prefix+label.Sprint(strings.Repeat("^", underline)),
	)
	return werr
}

// sourceLine returns the text of the line containing span.Start, the
// whitespace that aligns the underline, and the underline width in runes.
func (s *SourceError) sourceLine(span ast.Span) (line, prefix string, underline int) {
	start := span.Start.Offset
	if start > len(s.Source) {
		start = len(s.Source)
	}
	begin := strings.LastIndexAny(s.Source[:start], "\r\n") + 1
	end := strings.IndexAny(s.Source[start:], "\r\n")
	if end < 0 {
		end = len(s.Source)
	} else {
		end += start
	}
	line = s.Source[begin:end]
	for _, r := range s.Source[begin:start] {
		if r == '\t' {
			prefix += "\t"
		} else {
			prefix += " "
		}
	}
	stop := span.End.Offset
	if stop > end {
		stop = end
	}
	if stop > start {
		underline = utf8.RuneCountInString(s.Source[start:stop])
	}
	if underline < 1 {
		underline = 1
	}
	return line, prefix, underline
}
