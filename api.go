package kdl

import (
	"github.com/alecthomas/kdl/ast"
)

// Decoder can be implemented by types to take full control of decoding a
// node into the receiver.
type Decoder interface {
	DecodeNode(node *ast.Node, ctx *Context) error
}

// ChildrenDecoder can be implemented by types to decode a whole document,
// or any list of sibling nodes, into the receiver.
type ChildrenDecoder interface {
	DecodeChildren(nodes []*ast.Node, ctx *Context) error
}

// PartialDecoder can be implemented by types used as flatten targets.
//
// A PartialDecoder sees one property or child at a time and reports
// whether it claimed it. It is never told that the node is complete, so it
// can not enforce required fields.
type PartialDecoder interface {
	InsertProperty(name ast.Ident, value *ast.Value, ctx *Context) (bool, error)
	InsertChild(node *ast.Node, ctx *Context) (bool, error)
}

// ScalarDecoder can be implemented by types decoded from a single value.
type ScalarDecoder interface {
	DecodeScalar(literal ast.Literal, span ast.Span, ctx *Context) error
}

// TypeChecker can be implemented by a ScalarDecoder to accept type
// annotations. Problems should be reported with Context.EmitError.
//
// A ScalarDecoder that does not implement TypeChecker rejects every type
// annotation.
type TypeChecker interface {
	CheckType(typ *ast.TypeName, ctx *Context)
}
