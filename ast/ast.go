// Package ast contains the span-annotated syntax tree of a KDL document.
//
// A Document is an ordered list of Nodes. Each Node has a name, an optional
// type annotation, positional arguments, named properties and optionally a
// block of child nodes:
//
//	(author)person "Jane" age=42 {
//	    email "jane@example.com"
//	}
//
// The tree is built by the grammar package and is never mutated afterwards.
package ast

// BuiltinType is a type annotation with a meaning known to the decoder.
type BuiltinType string

// Builtin type annotations.
const (
	U8     BuiltinType = "u8"
	I8     BuiltinType = "i8"
	U16    BuiltinType = "u16"
	I16    BuiltinType = "i16"
	U32    BuiltinType = "u32"
	I32    BuiltinType = "i32"
	U64    BuiltinType = "u64"
	I64    BuiltinType = "i64"
	Usize  BuiltinType = "usize"
	Isize  BuiltinType = "isize"
	F32    BuiltinType = "f32"
	F64    BuiltinType = "f64"
	Base64 BuiltinType = "base64"
)

var builtinTypes = map[string]BuiltinType{
	"u8": U8, "i8": I8, "u16": U16, "i16": I16, "u32": U32, "i32": I32,
	"u64": U64, "i64": I64, "usize": Usize, "isize": Isize,
	"f32": F32, "f64": F64, "base64": Base64,
}

// TypeName is a "(name)" annotation on a node or a value.
type TypeName struct {
	Span Span
	Name string
}

// Builtin returns the builtin type this annotation names, if any.
func (t *TypeName) Builtin() (BuiltinType, bool) {
	b, ok := builtinTypes[t.Name]
	return b, ok
}

func (t *TypeName) String() string { return "(" + formatIdent(t.Name) + ")" }

// Ident is an identifier with its span.
type Ident struct {
	Span  Span
	Value string
}

func (i Ident) String() string { return i.Value }

// Value is an argument or property value.
type Value struct {
	// Span covers the type annotation, if any, and the literal.
	Span        Span
	Type        *TypeName
	Literal     Literal
	LiteralSpan Span
}

func (v *Value) String() string {
	if v.Type != nil {
		return v.Type.String() + v.Literal.String()
	}
	return v.Literal.String()
}

// Property is a "name=value" pair on a node.
type Property struct {
	Name  Ident
	Value *Value
}

// Node in a Document.
type Node struct {
	Span       Span
	Type       *TypeName
	Name       Ident
	Arguments  []*Value
	Properties []*Property
	// Children is nil if the node has no children block.
	Children []*Node
}

// Property returns the value of the named property.
func (n *Node) Property(name string) (*Value, bool) {
	for _, prop := range n.Properties {
		if prop.Name.Value == name {
			return prop.Value, true
		}
	}
	return nil, false
}

// SetProperty adds a property, replacing the value of an existing property
// with the same name.
func (n *Node) SetProperty(name Ident, value *Value) {
	for _, prop := range n.Properties {
		if prop.Name.Value == name.Value {
			prop.Name = name
			prop.Value = value
			return
		}
	}
	n.Properties = append(n.Properties, &Property{Name: name, Value: value})
}

// Document is a parsed KDL text.
type Document struct {
	Nodes []*Node
}
