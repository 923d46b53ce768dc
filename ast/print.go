package ast

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Fprint writes the canonical KDL form of doc to w.
//
// Comments and original formatting are not preserved.
func Fprint(w io.Writer, doc *Document) error {
	p := &printer{w: w}
	for _, node := range doc.Nodes {
		p.node(node, 0)
	}
	return p.err
}

// Format returns the canonical KDL form of doc.
func Format(doc *Document) string {
	w := &strings.Builder{}
	_ = Fprint(w, doc)
	return w.String()
}

func (n *Node) String() string {
	w := &strings.Builder{}
	p := &printer{w: w}
	p.node(n, 0)
	return strings.TrimSuffix(w.String(), "\n")
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) node(n *Node, indent int) {
	p.printf("%s", strings.Repeat("    ", indent))
	if n.Type != nil {
		p.printf("%s", n.Type)
	}
	p.printf("%s", formatIdent(n.Name.Value))
	for _, arg := range n.Arguments {
		p.printf(" %s", arg)
	}
	for _, prop := range n.Properties {
		p.printf(" %s=%s", formatIdent(prop.Name.Value), prop.Value)
	}
	if n.Children != nil {
		if len(n.Children) == 0 {
			p.printf(" {}\n")
			return
		}
		p.printf(" {\n")
		for _, child := range n.Children {
			p.node(child, indent+1)
		}
		p.printf("%s}", strings.Repeat("    ", indent))
	}
	p.printf("\n")
}

// formatIdent returns name as a bare identifier if possible, otherwise quoted.
func formatIdent(name string) string {
	if bareIdentifier(name) {
		return name
	}
	return Quote(name)
}

func bareIdentifier(name string) bool {
	if name == "" || name == "true" || name == "false" || name == "null" {
		return false
	}
	for i, r := range name {
		if !identifierChar(r) {
			return false
		}
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
	}
	if (name[0] == '-' || name[0] == '+') && len(name) > 1 && name[1] >= '0' && name[1] <= '9' {
		return false
	}
	return true
}

func identifierChar(r rune) bool {
	if r <= 0x20 || r > 0x10FFFF || unicode.IsSpace(r) || r == '\uFEFF' {
		return false
	}
	return !strings.ContainsRune(`\/(){}<>;[]=,"`, r)
}
