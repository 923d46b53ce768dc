package grammar_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
	"github.com/stretchr/testify/require"

	"github.com/alecthomas/kdl/ast"
	"github.com/alecthomas/kdl/grammar"
)

func mustParse(t *testing.T, text string) *ast.Document {
	t.Helper()
	doc, err := grammar.Parse(text)
	require.NoError(t, err)
	return doc
}

func TestParseNode(t *testing.T) {
	doc := mustParse(t, `(person)author "Jane" "Doe" age=42 {
    email "jane@example.com"
}
`)
	require.Len(t, doc.Nodes, 1)
	node := doc.Nodes[0]
	require.Equal(t, "author", node.Name.Value)
	require.Equal(t, "person", node.Type.Name)
	require.Len(t, node.Arguments, 2)
	require.Equal(t, ast.String("Jane"), node.Arguments[0].Literal)
	require.Equal(t, ast.String("Doe"), node.Arguments[1].Literal)
	age, ok := node.Property("age")
	require.True(t, ok)
	require.Equal(t, ast.Integer{Radix: ast.Dec, Digits: "42"}, age.Literal)
	require.Len(t, node.Children, 1)
	require.Equal(t, "email", node.Children[0].Name.Value)
}

func TestNodeSpan(t *testing.T) {
	tests := []struct {
		text       string
		start, end int
	}{
		{`node "hello"`, 0, 12},
		{`   node  "hello"     `, 3, 21},
		{`   node  "hello";     `, 3, 17},
		{`   node  "hello"     {   child;   }`, 3, 35},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			doc := mustParse(t, test.text)
			require.Len(t, doc.Nodes, 1)
			span := doc.Nodes[0].Span
			require.Equal(t, test.start, span.Start.Offset, "%#v", span)
			require.Equal(t, test.end, span.End.Offset, "%#v", span)
		})
	}
}

func TestValueSpans(t *testing.T) {
	doc := mustParse(t, `node (u8)10 key="v"`)
	arg := doc.Nodes[0].Arguments[0]
	require.Equal(t, 5, arg.Span.Start.Offset)
	require.Equal(t, 11, arg.Span.End.Offset)
	require.Equal(t, 9, arg.LiteralSpan.Start.Offset)
	require.Equal(t, 5, arg.Type.Span.Start.Offset)
	require.Equal(t, 9, arg.Type.Span.End.Offset)
	prop := doc.Nodes[0].Properties[0]
	require.Equal(t, 12, prop.Name.Span.Start.Offset)
	require.Equal(t, 15, prop.Name.Span.End.Offset)
}

func TestNestedComments(t *testing.T) {
	doc := mustParse(t, "/* a /* b */ c */ node /* inline */ 1\n// trailing\n")
	require.Len(t, doc.Nodes, 1)
	require.Equal(t, "node", doc.Nodes[0].Name.Value)
	require.Len(t, doc.Nodes[0].Arguments, 1)
}

func TestUnclosedComment(t *testing.T) {
	_, err := grammar.Parse("/* a /* b */ node")
	require.EqualError(t, err, "1:1: unclosed block comment")
}

func TestCRLF(t *testing.T) {
	doc := mustParse(t, "a\r\nb\r\n")
	require.Len(t, doc.Nodes, 2)
	require.Equal(t, ast.Position{Offset: 3, Line: 2, Column: 1}, doc.Nodes[1].Name.Span.Start)
}

func TestSlashdash(t *testing.T) {
	doc := mustParse(t, `/-a 1
b /-"x" "y" /-key=1 /-{
    c
}
/- d
e
`)
	require.Len(t, doc.Nodes, 2)
	b := doc.Nodes[0]
	require.Equal(t, "b", b.Name.Value)
	require.Len(t, b.Arguments, 1)
	require.Equal(t, ast.String("y"), b.Arguments[0].Literal)
	require.Empty(t, b.Properties)
	require.Nil(t, b.Children)
	require.Equal(t, "e", doc.Nodes[1].Name.Value)
}

func TestLineContinuation(t *testing.T) {
	doc := mustParse(t, "a 1 \\\n  2 \\ // comment\n  3\nb")
	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Nodes[0].Arguments, 3)
}

func TestLastPropertyWins(t *testing.T) {
	doc := mustParse(t, `a x=1 y=2 x=3`)
	props := doc.Nodes[0].Properties
	require.Len(t, props, 2)
	require.Equal(t, "x", props[0].Name.Value)
	require.Equal(t, ast.Integer{Radix: ast.Dec, Digits: "3"}, props[0].Value.Literal)
}

func TestEmptyChildren(t *testing.T) {
	doc := mustParse(t, "a {}\nb")
	require.NotNil(t, doc.Nodes[0].Children)
	require.Empty(t, doc.Nodes[0].Children)
	require.Nil(t, doc.Nodes[1].Children)
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		text     string
		expected ast.Literal
	}{
		{"1_000", ast.Integer{Radix: ast.Dec, Digits: "1000"}},
		{"-17", ast.Integer{Radix: ast.Dec, Digits: "-17"}},
		{"+3", ast.Integer{Radix: ast.Dec, Digits: "+3"}},
		{"0xff_ff", ast.Integer{Radix: ast.Hex, Digits: "ffff"}},
		{"-0o17", ast.Integer{Radix: ast.Oct, Digits: "-17"}},
		{"0b1010", ast.Integer{Radix: ast.Bin, Digits: "1010"}},
		{"1.5", ast.Decimal{Mantissa: "1.5"}},
		{"-2e10", ast.Decimal{Mantissa: "-2", Exponent: "10"}},
		{"16.125e+1", ast.Decimal{Mantissa: "16.125", Exponent: "+1"}},
		{"1_0.0_1E-2", ast.Decimal{Mantissa: "10.01", Exponent: "-2"}},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			value, err := grammar.ParseValue(test.text)
			require.NoError(t, err)
			require.Equal(t, test.expected, value.Literal, repr.String(value))
		})
	}
}

func TestInvalidNumbers(t *testing.T) {
	for _, text := range []string{"1.", "1e", "0x", "12abc", "0b102"} {
		t.Run(text, func(t *testing.T) {
			_, err := grammar.ParseValue(text)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid number")
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{`"plain"`, "plain"},
		{`"a\nb\t\"c\"\\\/"`, "a\nb\t\"c\"\\/"},
		{`"\u{1F600}\u{e9}"`, "\U0001F600\u00e9"},
		{`r"C:\path"`, `C:\path`},
		{`r#"a "quoted" b"#`, `a "quoted" b`},
		{`r##"a "# b"##`, `a "# b`},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			value, err := grammar.ParseValue(test.text)
			require.NoError(t, err)
			require.Equal(t, ast.String(test.expected), value.Literal)
		})
	}
}

func TestInvalidEscape(t *testing.T) {
	_, err := grammar.Parse(`node "a\qb" "\u{110000}"`)
	var rerr *grammar.RecoveryError
	require.True(t, errors.As(err, &rerr))
	require.Len(t, rerr.Errors, 2)
	require.Equal(t, `invalid escape sequence "\\q"`, rerr.Errors[0].Message())
	require.Equal(t, `invalid unicode code point \u{110000}`, rerr.Errors[1].Message())
}

func TestKeywords(t *testing.T) {
	doc := mustParse(t, `node true false null "true"=1`)
	args := doc.Nodes[0].Arguments
	require.Equal(t, ast.Bool(true), args[0].Literal)
	require.Equal(t, ast.Bool(false), args[1].Literal)
	require.Equal(t, ast.Null{}, args[2].Literal)
	_, ok := doc.Nodes[0].Property("true")
	require.True(t, ok)

	_, err := grammar.Parse(`true 1`)
	require.EqualError(t, err, "1:1: keyword `true` cannot be used as node name, quote it")
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		text string
		err  string
	}{
		{`node bare`, "1:6: unexpected identifier `bare`, arguments must be quoted"},
		{`node key=bare`, "1:10: unexpected identifier `bare`, values must be quoted"},
		{`node "a""b"`, "1:9: expected whitespace, found `\"`"},
		{`1node`, "1:1: node name cannot start with a digit"},
		{`node "abc`, "1:6: unclosed string"},
		{"a {\n  b\n", "1:3: unclosed children block, expected `}`"},
		{"a {} {}", "1:1: node `a` has more than one children block"},
		{`a {} "x"`, "1:6: unexpected `\"` after children block"},
		{"}", "1:1: unexpected `}` outside of a children block"},
		{"a \\ b", "1:3: expected newline after line continuation, found `b`"},
	}
	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			_, err := grammar.Parse(test.text)
			require.EqualError(t, err, test.err)
		})
	}
}

func TestRecovery(t *testing.T) {
	doc, err := grammar.Parse("a b\nc (\nd\ne { f g; h }\n")
	require.Nil(t, doc)
	var rerr *grammar.RecoveryError
	require.True(t, errors.As(err, &rerr))
	msgs := []string{}
	for _, e := range rerr.Errors {
		msgs = append(msgs, e.Error())
	}
	require.Equal(t, []string{
		"1:3: unexpected identifier `b`, arguments must be quoted",
		"2:4: expected type name, found newline",
		"4:7: unexpected identifier `g`, arguments must be quoted",
	}, msgs)
	require.Equal(t, rerr.Errors[0], errors.Unwrap(err))
}

func TestMaxErrors(t *testing.T) {
	_, err := grammar.Parse("a b\nc d\ne f\n", grammar.MaxErrors(2))
	var rerr *grammar.RecoveryError
	require.True(t, errors.As(err, &rerr))
	require.Len(t, rerr.Errors, 2)
}

func TestFormatIsIdempotent(t *testing.T) {
	source := `
// comment
(t)node "a\n" 0x1F -1.5e3 true null key=r#"raw"# "quoted key"=1 {
    child; /- dropped
    empty {}
    "needs quoting" 1
}
`
	first := ast.Format(mustParse(t, source))
	second := ast.Format(mustParse(t, first))
	require.Equal(t, first, second)
	require.Equal(t, `(t)node "a\n" 0x1F -1.5e3 true null key="raw" "quoted key"=1 {
    child
    empty {}
    "needs quoting" 1
}
`, first)
}

func TestTrace(t *testing.T) {
	w := &strings.Builder{}
	_, err := grammar.Parse(`a { b 1; }`, grammar.Trace(w))
	require.NoError(t, err)
	require.Contains(t, w.String(), "node")
	require.Contains(t, w.String(), "  1:5 \"b 1; }\" node")
}

func TestParseIsDeterministic(t *testing.T) {
	source := `// leading comment
(t)server "web" port=80 "x"=(u8)1 {
    route "/a" /-"ignored" { handler r#"raw"# }
    /- disabled 1
    limits max=1.5e3 min=-0x1F \
        burst=true
}
empty {}; last null
`
	first := mustParse(t, source)
	second := mustParse(t, source)
	require.Equal(t, first, second)
	require.Equal(t, 3, len(first.Nodes))
	require.Equal(t, ast.Position{Offset: 19, Line: 2, Column: 1}, first.Nodes[0].Span.Start)
	require.Equal(t, first.Nodes[1].Span, second.Nodes[1].Span)
	require.Equal(t, first.Nodes[0].Children[1].Properties[2].Name.Span, second.Nodes[0].Children[1].Properties[2].Name.Span)
}

func TestInvalidUTF8(t *testing.T) {
	_, err := grammar.Parse("node \"a\xffb\"\nno\xfe\xffde 1\n")
	var rerr *grammar.RecoveryError
	require.True(t, errors.As(err, &rerr))
	require.Len(t, rerr.Errors, 2)
	require.EqualError(t, rerr.Errors[0], "1:8: invalid UTF-8 encoding")
	require.EqualError(t, rerr.Errors[1], "2:3: invalid UTF-8 encoding")
	require.Equal(t, 2, rerr.Errors[1].At.Len())

	_, err = grammar.ParseValue("\"\xff\"")
	require.EqualError(t, err, "1:2: invalid UTF-8 encoding")
}
