package kdl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kdl/ast"
)

// tracef writes a decode step for node to the trace writer, if any, and
// indents the steps nested within it. The returned function dedents.
func (c *Context) tracef(node *ast.Node, format string, args ...interface{}) func() {
	if c.trace == nil {
		return func() {}
	}
	fmt.Fprintf(c.trace, "%s%s %q %s\n", strings.Repeat(" ", c.indent), node.Name.Span.Start, node.Name.Value, fmt.Sprintf(format, args...))
	c.indent += 2
	return func() { c.indent -= 2 }
}
