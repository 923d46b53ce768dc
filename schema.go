package kdl

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/alecthomas/kdl/ast"
	"github.com/alecthomas/kdl/grammar"
)

var (
	decoderType         = reflect.TypeOf((*Decoder)(nil)).Elem()
	childrenDecoderType = reflect.TypeOf((*ChildrenDecoder)(nil)).Elem()
	partialDecoderType  = reflect.TypeOf((*PartialDecoder)(nil)).Elem()
	nodeType            = reflect.TypeOf(ast.Node{})
	nodePtrType         = reflect.TypeOf(&ast.Node{})
	spanType            = reflect.TypeOf(ast.Span{})
	typeNamePtrType     = reflect.TypeOf(&ast.TypeName{})
)

type (
	valueDecoder    func(value *ast.Value, v reflect.Value, ctx *Context) error
	nodeDecoder     func(node *ast.Node, v reflect.Value, ctx *Context) error
	childrenDecoder func(nodes []*ast.Node, v reflect.Value, ctx *Context) error
	keyDecoder      func(name ast.Ident, v reflect.Value) error
)

// partialTarget is the absorbing decode capability of a flatten target.
type partialTarget interface {
	insertProperty(v reflect.Value, name ast.Ident, value *ast.Value, ctx *Context) (bool, error)
	insertChild(v reflect.Value, node *ast.Node, ctx *Context) (bool, error)
}

// field is the decoding schema of one struct field.
type field struct {
	goName   string
	name     string
	index    []int
	typ      reflect.Type
	tag      tag
	optional bool
	// Boolean child fields record the presence of the child.
	presence bool
	// Value assigned when the field is missing, if not the zero value.
	dflt *reflect.Value

	value   valueDecoder
	key     keyDecoder
	node    nodeDecoder
	unwrap  *schema
	partial partialTarget
}

// schema of a struct type: its fields classified by role.
type schema struct {
	typ reflect.Type

	arguments         []*field
	varArguments      *field
	properties        []*field
	propertyIndex     map[string]*field
	flattenProperties []*field
	varProperties     *field
	children          []*field
	childIndex        map[string]*field
	flattenChildren   []*field
	flattenFields     []*field
	varChildren       *field
	span              *field
	nodeName          *field
	typeName          *field

	// Why the schema can not be used as a flatten target, empty if it can.
	notPartial string
	building   bool
}

// Schemas of fully built types.
var schemaCache sync.Map // map[reflect.Type]*schema

// builder constructs schemas, resolving recursive types.
type builder struct {
	schemas map[reflect.Type]*schema
}

func newBuilder() *builder {
	return &builder{schemas: map[reflect.Type]*schema{}}
}

// commit publishes all schemas built so far to the shared cache.
func (b *builder) commit() {
	for t, s := range b.schemas {
		schemaCache.Store(t, s)
	}
}

func (b *builder) schemaFor(t reflect.Type) (*schema, error) {
	if s, ok := b.schemas[t]; ok {
		return s, nil
	}
	if s, ok := schemaCache.Load(t); ok {
		return s.(*schema), nil
	}
	s := &schema{
		typ:           t,
		propertyIndex: map[string]*field{},
		childIndex:    map[string]*field{},
		building:      true,
	}
	b.schemas[t] = s
	for _, sf := range collectFields(t) {
		if err := b.addField(s, sf); err != nil {
			return nil, err
		}
	}
	s.building = false
	s.notPartial = s.checkPartial()
	return s, nil
}

func (b *builder) addField(s *schema, sf structField) error {
	fail := func(format string, args ...interface{}) error {
		return buildErrorf(s.typ, sf.Name, format, args...)
	}
	tg, err := parseTag(sf.Tag)
	if err != nil {
		return fail("%s", err)
	}
	if !sf.IsExported() {
		return fail("unexported fields can not be decoded")
	}
	f := &field{
		goName:   sf.Name,
		name:     tg.name,
		index:    sf.Index,
		typ:      sf.Type,
		tag:      tg,
		optional: tg.optional || tg.hasDefault || sf.Type.Kind() == reflect.Ptr,
	}
	if f.name == "" {
		f.name = kebabCase(sf.Name)
	}
	if tg.unwrap != roleNone && tg.role != roleChild {
		return fail("unwrap is only valid on child fields")
	}
	if tg.defaultValue != "" && tg.role != roleArgument && tg.role != roleProperty {
		return fail("default values are only supported on argument and property fields")
	}

	switch tg.role {
	case roleArgument:
		if f.value, err = b.valueDecoder(f.typ, tg.str); err != nil {
			return fail("%s", err)
		}
		s.arguments = append(s.arguments, f)

	case roleArguments:
		if f.typ.Kind() != reflect.Slice {
			return fail("arguments field must be a slice, not %s", f.typ)
		}
		if s.varArguments != nil {
			return fail("duplicate arguments field, %s already captures remaining arguments", s.varArguments.goName)
		}
		if f.value, err = b.valueDecoder(f.typ.Elem(), tg.str); err != nil {
			return fail("%s", err)
		}
		s.varArguments = f

	case roleProperty:
		if f.value, err = b.valueDecoder(f.typ, tg.str); err != nil {
			return fail("%s", err)
		}
		if other, ok := s.propertyIndex[f.name]; ok {
			return fail("property %q is already decoded by %s", f.name, other.goName)
		}
		s.propertyIndex[f.name] = f
		s.properties = append(s.properties, f)

	case roleProperties:
		if f.typ.Kind() != reflect.Map {
			return fail("properties field must be a map, not %s", f.typ)
		}
		if s.varProperties != nil {
			return fail("duplicate properties field, %s already captures remaining properties", s.varProperties.goName)
		}
		if f.key, err = keyDecoderFor(f.typ.Key()); err != nil {
			return fail("%s", err)
		}
		if f.value, err = b.valueDecoder(f.typ.Elem(), tg.str); err != nil {
			return fail("%s", err)
		}
		s.varProperties = f

	case roleChild:
		switch {
		case tg.unwrap != roleNone:
			if f.unwrap, err = b.unwrapSchema(f); err != nil {
				return err
			}
		case f.typ.Kind() == reflect.Bool:
			f.presence = true
			f.optional = true
			if f.unwrap, err = b.schemaFor(reflect.TypeOf(struct{}{})); err != nil {
				return err
			}
		default:
			if f.node, err = b.nodeDecoder(f.typ); err != nil {
				return fail("%s", err)
			}
		}
		if err := s.indexChild(f); err != nil {
			return err
		}
		s.children = append(s.children, f)

	case roleChildren:
		if f.typ.Kind() != reflect.Slice {
			return fail("children field must be a slice, not %s", f.typ)
		}
		if f.node, err = b.nodeDecoder(f.typ.Elem()); err != nil {
			return fail("%s", err)
		}
		if tg.name != "" {
			if err := s.indexChild(f); err != nil {
				return err
			}
			break
		}
		if s.varChildren != nil {
			return fail("duplicate children field, %s already captures remaining children", s.varChildren.goName)
		}
		s.varChildren = f

	case roleFlatten:
		target := f.typ
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		if f.partial, err = b.partialTarget(target); err != nil {
			return fail("%s", err)
		}
		if tg.flatten&flattenProperties != 0 {
			s.flattenProperties = append(s.flattenProperties, f)
		}
		if tg.flatten&flattenChildren != 0 {
			s.flattenChildren = append(s.flattenChildren, f)
		}
		s.flattenFields = append(s.flattenFields, f)

	case roleSpan:
		if f.typ != spanType {
			return fail("span field must be of type ast.Span, not %s", f.typ)
		}
		s.span = f

	case roleNodeName:
		if f.typ.Kind() != reflect.String {
			return fail("node_name field must be a string, not %s", f.typ)
		}
		s.nodeName = f

	case roleTypeName:
		if f.typ.Kind() != reflect.String && f.typ != typeNamePtrType {
			return fail("type_name field must be a string or *ast.TypeName, not %s", f.typ)
		}
		s.typeName = f
	}

	if tg.defaultValue != "" {
		dflt, err := defaultValue(f, tg.defaultValue)
		if err != nil {
			return fail("invalid default %q: %s", tg.defaultValue, err)
		}
		f.dflt = &dflt
	}
	return nil
}

func (s *schema) indexChild(f *field) error {
	if other, ok := s.childIndex[f.name]; ok {
		return buildErrorf(s.typ, f.goName, "child %q is already decoded by %s", f.name, other.goName)
	}
	s.childIndex[f.name] = f
	return nil
}

// unwrapSchema synthesises a one-field struct that decodes the child node
// into the field's value.
func (b *builder) unwrapSchema(f *field) (*schema, error) {
	inner := f.typ
	if inner.Kind() == reflect.Ptr {
		inner = inner.Elem()
	}
	tag := f.tag.unwrap.String()
	if f.tag.unwrap == roleProperty {
		name := f.tag.unwrapName
		if name == "" {
			name = f.name
		}
		tag += ",name=" + name
	}
	if f.tag.str {
		tag += ",str"
	}
	synthetic := reflect.StructOf([]reflect.StructField{{
		Name: f.goName,
		Type: inner,
		Tag:  reflect.StructTag(fmt.Sprintf("kdl:%q", tag)),
	}})
	return b.schemaFor(synthetic)
}

// partialTarget returns the absorbing decoder for a flatten target.
//
// Only types that implement PartialDecoder, or structs with no required
// fields, can be flattened.
func (b *builder) partialTarget(t reflect.Type) (partialTarget, error) {
	if reflect.PtrTo(t).Implements(partialDecoderType) {
		return partialDecoderTarget{}, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("flatten target %s must be a struct or implement PartialDecoder", t)
	}
	s, err := b.schemaFor(t)
	if err != nil {
		return nil, err
	}
	if s.building {
		return nil, fmt.Errorf("flatten target %s is recursive", t)
	}
	if s.notPartial != "" {
		return nil, fmt.Errorf("%s can not be flattened: %s", t, s.notPartial)
	}
	return s, nil
}

// checkPartial returns why the schema can not be decoded one property or
// child at a time, or "" if it can.
func (s *schema) checkPartial() string {
	switch {
	case len(s.arguments) > 0 || s.varArguments != nil:
		return "it has argument fields"
	case s.varProperties != nil:
		return fmt.Sprintf("properties field %s is not supported", s.varProperties.goName)
	case s.varChildren != nil:
		return fmt.Sprintf("children field %s is not supported", s.varChildren.goName)
	}
	for _, f := range s.properties {
		if !f.optional {
			return fmt.Sprintf("property %q is required", f.name)
		}
	}
	for _, f := range s.children {
		if !f.optional {
			return fmt.Sprintf("child %q is required", f.name)
		}
	}
	return ""
}

// nodeDecoder returns a function decoding a node into a value of type t.
func (b *builder) nodeDecoder(t reflect.Type) (nodeDecoder, error) {
	switch {
	case t == nodePtrType:
		return func(node *ast.Node, v reflect.Value, ctx *Context) error {
			v.Set(reflect.ValueOf(node))
			return nil
		}, nil

	case t == nodeType:
		return func(node *ast.Node, v reflect.Value, ctx *Context) error {
			v.Set(reflect.ValueOf(*node))
			return nil
		}, nil

	case reflect.PtrTo(t).Implements(decoderType):
		return func(node *ast.Node, v reflect.Value, ctx *Context) error {
			return v.Addr().Interface().(Decoder).DecodeNode(node, ctx)
		}, nil

	case t.Kind() == reflect.Ptr:
		elem, err := b.nodeDecoder(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(node *ast.Node, v reflect.Value, ctx *Context) error {
			ev := reflect.New(t.Elem())
			if err := elem(node, ev.Elem(), ctx); err != nil {
				return err
			}
			v.Set(ev)
			return nil
		}, nil

	case t.Kind() == reflect.Struct:
		s, err := b.schemaFor(t)
		if err != nil {
			return nil, err
		}
		return s.decodeNode, nil
	}
	return nil, fmt.Errorf("can not decode a node into %s", t)
}

// childrenDecoderFor returns a function decoding a list of sibling nodes,
// such as a whole document, into a value of type t.
func (b *builder) childrenDecoderFor(t reflect.Type) (childrenDecoder, error) {
	switch {
	case reflect.PtrTo(t).Implements(childrenDecoderType):
		return func(nodes []*ast.Node, v reflect.Value, ctx *Context) error {
			return v.Addr().Interface().(ChildrenDecoder).DecodeChildren(nodes, ctx)
		}, nil

	case t.Kind() == reflect.Slice:
		elem, err := b.nodeDecoder(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(nodes []*ast.Node, v reflect.Value, ctx *Context) error {
			out := reflect.MakeSlice(t, 0, len(nodes))
			for _, node := range nodes {
				ev := reflect.New(t.Elem()).Elem()
				if err := elem(node, ev, ctx); err != nil {
					ctx.EmitError(err)
					continue
				}
				out = reflect.Append(out, ev)
			}
			v.Set(out)
			return nil
		}, nil

	case t.Kind() == reflect.Ptr:
		elem, err := b.childrenDecoderFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(nodes []*ast.Node, v reflect.Value, ctx *Context) error {
			ev := reflect.New(t.Elem())
			if err := elem(nodes, ev.Elem(), ctx); err != nil {
				return err
			}
			v.Set(ev)
			return nil
		}, nil

	case t.Kind() == reflect.Struct:
		s, err := b.schemaFor(t)
		if err != nil {
			return nil, err
		}
		if len(s.arguments) > 0 || s.varArguments != nil || len(s.properties) > 0 || s.varProperties != nil {
			return nil, buildErrorf(t, "", "can not decode a document: documents have no arguments or properties")
		}
		for _, f := range s.flattenProperties {
			if f.tag.flatten&flattenChildren == 0 {
				return nil, buildErrorf(t, f.goName, "can not decode a document: documents have no properties, use `flatten` or `flatten=child`")
			}
		}
		return func(nodes []*ast.Node, v reflect.Value, ctx *Context) error {
			s.prepare(v, ctx)
			return s.decodeChildren(nodes, v, nil, ctx)
		}, nil
	}
	return nil, buildErrorf(t, "", "can not decode a document into %s", t)
}

// defaultValue decodes the KDL text of a default value for f.
func defaultValue(f *field, text string) (reflect.Value, error) {
	value, err := grammar.ParseValue(text)
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.New(f.typ).Elem()
	ctx := NewContext()
	if err := f.value(value, v, ctx); err != nil {
		return reflect.Value{}, err
	}
	if errs := ctx.Errors(); len(errs) > 0 {
		return reflect.Value{}, errs[0]
	}
	return v, nil
}

// partialDecoderTarget adapts a PartialDecoder implementation.
type partialDecoderTarget struct{}

func (partialDecoderTarget) insertProperty(v reflect.Value, name ast.Ident, value *ast.Value, ctx *Context) (bool, error) {
	return v.Addr().Interface().(PartialDecoder).InsertProperty(name, value, ctx)
}

func (partialDecoderTarget) insertChild(v reflect.Value, node *ast.Node, ctx *Context) (bool, error) {
	return v.Addr().Interface().(PartialDecoder).InsertChild(node, ctx)
}
