package kdl

import (
	"encoding"
	"reflect"
	"strconv"

	"github.com/alecthomas/kdl/ast"
)

// decodeNode decodes node into the struct v.
//
// Metadata is assigned first, then arguments, properties and children are
// decoded in that order. The first error in any phase aborts the node.
func (s *schema) decodeNode(node *ast.Node, v reflect.Value, ctx *Context) error {
	defer ctx.tracef(node, "%s", s.typ)()
	s.prepare(v, ctx)
	s.decodeMeta(node, v)
	if err := s.decodeArguments(node, v, ctx); err != nil {
		return err
	}
	if err := s.decodeProperties(node, v, ctx); err != nil {
		return err
	}
	return s.decodeChildren(node.Children, v, &node.Name.Span, ctx)
}

// prepare allocates flatten targets and assigns their defaults, as they are
// only ever populated one property or child at a time.
func (s *schema) prepare(v reflect.Value, ctx *Context) {
	for _, f := range s.flattenFields {
		target := s.flattenTarget(f, v)
		if inner, ok := f.partial.(*schema); ok {
			ctx.resetClaims(target, inner)
			inner.assignDefaults(target)
			inner.prepare(target, ctx)
		}
	}
}

func (s *schema) assignDefaults(v reflect.Value) {
	for _, f := range s.properties {
		f.assignDefault(v.FieldByIndex(f.index))
	}
	for _, f := range s.children {
		f.assignDefault(v.FieldByIndex(f.index))
	}
}

func (f *field) assignDefault(v reflect.Value) {
	if f.dflt != nil {
		v.Set(*f.dflt)
	}
}

// flattenTarget returns the struct value of the flatten field f, allocating
// it if it is a nil pointer.
func (s *schema) flattenTarget(f *field, v reflect.Value) reflect.Value {
	fv := v.FieldByIndex(f.index)
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		return fv.Elem()
	}
	return fv
}

func (s *schema) decodeMeta(node *ast.Node, v reflect.Value) {
	if f := s.span; f != nil {
		v.FieldByIndex(f.index).Set(reflect.ValueOf(node.Span))
	}
	if f := s.nodeName; f != nil {
		v.FieldByIndex(f.index).SetString(node.Name.Value)
	}
	if f := s.typeName; f != nil {
		fv := v.FieldByIndex(f.index)
		if f.typ == typeNamePtrType {
			fv.Set(reflect.ValueOf(node.Type))
		} else if node.Type != nil {
			fv.SetString(node.Type.Name)
		}
	}
}

func (s *schema) decodeArguments(node *ast.Node, v reflect.Value, ctx *Context) error {
	args := node.Arguments
	i := 0
	for _, f := range s.arguments {
		fv := v.FieldByIndex(f.index)
		if i >= len(args) {
			if f.optional {
				f.assignDefault(fv)
				continue
			}
			return missingError(&node.Name.Span, "additional argument `%s` is required", f.name)
		}
		if err := f.value(args[i], fv, ctx); err != nil {
			return err
		}
		i++
	}
	if f := s.varArguments; f != nil {
		out := reflect.MakeSlice(f.typ, 0, len(args)-i)
		for _, arg := range args[i:] {
			ev := reflect.New(f.typ.Elem()).Elem()
			if err := f.value(arg, ev, ctx); err != nil {
				return err
			}
			out = reflect.Append(out, ev)
		}
		v.FieldByIndex(f.index).Set(out)
		return nil
	}
	if i < len(args) {
		return unexpectedError(args[i].Span, "unexpected argument")
	}
	return nil
}

func (s *schema) decodeProperties(node *ast.Node, v reflect.Value, ctx *Context) error {
	seen := map[*field]bool{}
	var rest reflect.Value
	if f := s.varProperties; f != nil {
		rest = reflect.MakeMap(f.typ)
	}
	for _, prop := range node.Properties {
		name := prop.Name.Value
		if f, ok := s.propertyIndex[name]; ok {
			if err := f.value(prop.Value, v.FieldByIndex(f.index), ctx); err != nil {
				return err
			}
			seen[f] = true
			continue
		}
		claimed, err := s.flattenProperty(v, prop.Name, prop.Value, ctx)
		if err != nil {
			return err
		}
		if claimed {
			continue
		}
		if f := s.varProperties; f != nil {
			key := reflect.New(f.typ.Key()).Elem()
			if err := f.key(prop.Name, key); err != nil {
				return err
			}
			value := reflect.New(f.typ.Elem()).Elem()
			if err := f.value(prop.Value, value, ctx); err != nil {
				return err
			}
			rest.SetMapIndex(key, value)
			continue
		}
		return unexpectedError(prop.Name.Span, "unexpected property `%s`", escape(name))
	}
	if rest.IsValid() {
		v.FieldByIndex(s.varProperties.index).Set(rest)
	}
	for _, f := range s.properties {
		if seen[f] {
			continue
		}
		if !f.optional {
			return missingError(&node.Name.Span, "property `%s` is required", f.name)
		}
		f.assignDefault(v.FieldByIndex(f.index))
	}
	return nil
}

// decodeChildren decodes a list of sibling nodes into the struct v.
//
// "span" is the name of the parent node, or nil at the top level of a
// document.
func (s *schema) decodeChildren(nodes []*ast.Node, v reflect.Value, span *ast.Span, ctx *Context) error {
	seen := map[*field]bool{}
	collections := map[*field]reflect.Value{}
	for _, child := range nodes {
		name := child.Name.Value
		if f, ok := s.childIndex[name]; ok {
			if f.tag.role == roleChildren {
				f.collect(child, collections, ctx)
				continue
			}
			if seen[f] {
				return duplicateError(child.Name.Span, "duplicate node `%s`, single node expected", escape(name))
			}
			if err := f.decodeChild(child, v.FieldByIndex(f.index), ctx); err != nil {
				return err
			}
			seen[f] = true
			continue
		}
		claimed, err := s.flattenChild(v, child, ctx)
		if err != nil {
			return err
		}
		if claimed {
			continue
		}
		if f := s.varChildren; f != nil {
			f.collect(child, collections, ctx)
			continue
		}
		return unexpectedError(child.Span, "unexpected node `%s`", escape(name))
	}
	for f, out := range collections {
		v.FieldByIndex(f.index).Set(out)
	}
	for _, f := range s.children {
		if seen[f] {
			continue
		}
		if !f.optional {
			return missingError(span, "child node `%s` is required", f.name)
		}
		f.assignDefault(v.FieldByIndex(f.index))
	}
	return nil
}

// collect decodes child as an element of the collection field f. Errors are
// emitted so that the remaining siblings are still decoded.
func (f *field) collect(child *ast.Node, collections map[*field]reflect.Value, ctx *Context) {
	ev := reflect.New(f.typ.Elem()).Elem()
	if err := f.node(child, ev, ctx); err != nil {
		ctx.EmitError(err)
		return
	}
	out, ok := collections[f]
	if !ok {
		out = reflect.MakeSlice(f.typ, 0, 1)
	}
	collections[f] = reflect.Append(out, ev)
}

// decodeChild decodes a single child node into the field value v.
func (f *field) decodeChild(child *ast.Node, v reflect.Value, ctx *Context) error {
	switch {
	case f.presence:
		if err := f.unwrap.decodeNode(child, reflect.New(f.unwrap.typ).Elem(), ctx); err != nil {
			return err
		}
		v.SetBool(true)
		return nil

	case f.unwrap != nil:
		sv := reflect.New(f.unwrap.typ).Elem()
		if err := f.unwrap.decodeNode(child, sv, ctx); err != nil {
			return err
		}
		inner := sv.Field(0)
		if f.typ.Kind() == reflect.Ptr {
			ptr := reflect.New(f.typ.Elem())
			ptr.Elem().Set(inner)
			v.Set(ptr)
		} else {
			v.Set(inner)
		}
		return nil
	}
	return f.node(child, v, ctx)
}

func (s *schema) flattenProperty(v reflect.Value, name ast.Ident, value *ast.Value, ctx *Context) (bool, error) {
	for _, f := range s.flattenProperties {
		claimed, err := f.partial.insertProperty(s.flattenTarget(f, v), name, value, ctx)
		if err != nil || claimed {
			return claimed, err
		}
	}
	return false, nil
}

func (s *schema) flattenChild(v reflect.Value, node *ast.Node, ctx *Context) (bool, error) {
	for _, f := range s.flattenChildren {
		claimed, err := f.partial.insertChild(s.flattenTarget(f, v), node, ctx)
		if err != nil || claimed {
			return claimed, err
		}
	}
	return false, nil
}

func (s *schema) insertProperty(v reflect.Value, name ast.Ident, value *ast.Value, ctx *Context) (bool, error) {
	if f, ok := s.propertyIndex[name.Value]; ok {
		return true, f.value(value, v.FieldByIndex(f.index), ctx)
	}
	return s.flattenProperty(v, name, value, ctx)
}

func (s *schema) insertChild(v reflect.Value, node *ast.Node, ctx *Context) (bool, error) {
	name := node.Name.Value
	f, ok := s.childIndex[name]
	if !ok {
		return s.flattenChild(v, node, ctx)
	}
	fv := v.FieldByIndex(f.index)
	if f.tag.role == roleChildren {
		ev := reflect.New(f.typ.Elem()).Elem()
		if err := f.node(node, ev, ctx); err != nil {
			ctx.EmitError(err)
			return true, nil
		}
		fv.Set(reflect.Append(fv, ev))
		return true, nil
	}
	if !ctx.claim(v, f) {
		return true, duplicateError(node.Name.Span, "duplicate node `%s`, single node expected", escape(name))
	}
	return true, f.decodeChild(node, fv, ctx)
}

// keyDecoderFor returns a function decoding property names into map keys of type t.
func keyDecoderFor(t reflect.Type) (keyDecoder, error) {
	if reflect.PtrTo(t).Implements(textUnmarshalerType) {
		return func(name ast.Ident, v reflect.Value) error {
			if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name.Value)); err != nil {
				return conversionError(name.Span, err, "invalid property name `%s`", escape(name.Value))
			}
			return nil
		}, nil
	}
	switch t.Kind() {
	case reflect.String:
		return func(name ast.Ident, v reflect.Value) error {
			v.SetString(name.Value)
			return nil
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(name ast.Ident, v reflect.Value) error {
			n, err := strconv.ParseInt(name.Value, 10, t.Bits())
			if err != nil {
				return conversionError(name.Span, err, "invalid property name `%s`", escape(name.Value))
			}
			v.SetInt(n)
			return nil
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(name ast.Ident, v reflect.Value) error {
			n, err := strconv.ParseUint(name.Value, 10, t.Bits())
			if err != nil {
				return conversionError(name.Span, err, "invalid property name `%s`", escape(name.Value))
			}
			v.SetUint(n)
			return nil
		}, nil
	}
	return nil, buildErrorf(t, "", "can not decode property names into %s", t)
}

// escape control characters in names quoted in error messages.
func escape(name string) string {
	quoted := strconv.Quote(name)
	return quoted[1 : len(quoted)-1]
}
