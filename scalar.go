package kdl

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/alecthomas/kdl/ast"
)

var (
	valuePtrType        = reflect.TypeOf(&ast.Value{})
	valueType           = reflect.TypeOf(ast.Value{})
	literalType         = reflect.TypeOf((*ast.Literal)(nil)).Elem()
	bigIntPtrType       = reflect.TypeOf(&big.Int{})
	durationType        = reflect.TypeOf(time.Duration(0))
	bytesType           = reflect.TypeOf([]byte(nil))
	scalarDecoderType   = reflect.TypeOf((*ScalarDecoder)(nil)).Elem()
	typeCheckerType     = reflect.TypeOf((*TypeChecker)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Type annotations accepted by each numeric kind.
var builtinsByKind = map[reflect.Kind][]ast.BuiltinType{
	reflect.Int:     {ast.Isize, ast.I64},
	reflect.Int8:    {ast.I8},
	reflect.Int16:   {ast.I16},
	reflect.Int32:   {ast.I32},
	reflect.Int64:   {ast.I64},
	reflect.Uint:    {ast.Usize, ast.U64},
	reflect.Uint8:   {ast.U8},
	reflect.Uint16:  {ast.U16},
	reflect.Uint32:  {ast.U32},
	reflect.Uint64:  {ast.U64},
	reflect.Uintptr: {ast.Usize},
	reflect.Float32: {ast.F32},
	reflect.Float64: {ast.F64},
}

// valueDecoder returns a function decoding a single value into type t.
//
// If "str" is true the value must be a string, which is parsed into t.
func (b *builder) valueDecoder(t reflect.Type, str bool) (valueDecoder, error) {
	switch {
	case t == valuePtrType:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			v.Set(reflect.ValueOf(value))
			return nil
		}, nil

	case t == valueType:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			v.Set(reflect.ValueOf(*value))
			return nil
		}, nil

	case t == literalType:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			v.Set(reflect.ValueOf(value.Literal))
			return nil
		}, nil

	case t == bigIntPtrType && !str:
		return decodeBigInt, nil

	case t.Kind() == reflect.Ptr:
		elem, err := b.valueDecoder(t.Elem(), str)
		if err != nil {
			return nil, err
		}
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			if _, ok := value.Literal.(ast.Null); ok {
				v.Set(reflect.Zero(t))
				return nil
			}
			ev := reflect.New(t.Elem())
			if err := elem(value, ev.Elem(), ctx); err != nil {
				return err
			}
			v.Set(ev)
			return nil
		}, nil

	case reflect.PtrTo(t).Implements(scalarDecoderType):
		checker := reflect.PtrTo(t).Implements(typeCheckerType)
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			if value.Type != nil {
				if checker {
					v.Addr().Interface().(TypeChecker).CheckType(value.Type, ctx)
				} else {
					ctx.EmitError(typeNameError(value.Type, nil))
				}
			}
			return v.Addr().Interface().(ScalarDecoder).DecodeScalar(value.Literal, value.LiteralSpan, ctx)
		}, nil

	case str:
		return strDecoder(t)

	case reflect.PtrTo(t).Implements(textUnmarshalerType):
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			s, err := stringValue(value, ctx)
			if err != nil {
				return err
			}
			if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return conversionError(value.LiteralSpan, err, "invalid %s", t)
			}
			return nil
		}, nil

	case t == durationType:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			s, err := stringValue(value, ctx)
			if err != nil {
				return err
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return conversionError(value.LiteralSpan, err, "invalid duration")
			}
			v.SetInt(int64(d))
			return nil
		}, nil

	case t == bytesType:
		return decodeBytes, nil
	}

	switch t.Kind() {
	case reflect.String:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			s, err := stringValue(value, ctx)
			if err != nil {
				return err
			}
			v.SetString(s)
			return nil
		}, nil

	case reflect.Bool:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			checkBuiltin(value, ctx)
			b, ok := value.Literal.(ast.Bool)
			if !ok {
				return scalarKindError(value.LiteralSpan, "boolean", value.Literal)
			}
			v.SetBool(bool(b))
			return nil
		}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			checkBuiltin(value, ctx, builtinsByKind[t.Kind()]...)
			lit, ok := value.Literal.(ast.Integer)
			if !ok {
				return scalarKindError(value.LiteralSpan, "integer", value.Literal)
			}
			n, err := lit.Int64()
			if err != nil || v.OverflowInt(n) {
				return conversionError(value.LiteralSpan, nil, "integer %s is out of range for %s", lit, t)
			}
			v.SetInt(n)
			return nil
		}, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			checkBuiltin(value, ctx, builtinsByKind[t.Kind()]...)
			lit, ok := value.Literal.(ast.Integer)
			if !ok {
				return scalarKindError(value.LiteralSpan, "integer", value.Literal)
			}
			n, err := lit.Uint64()
			if err != nil || v.OverflowUint(n) {
				return conversionError(value.LiteralSpan, nil, "integer %s is out of range for %s", lit, t)
			}
			v.SetUint(n)
			return nil
		}, nil

	case reflect.Float32, reflect.Float64:
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			checkBuiltin(value, ctx, builtinsByKind[t.Kind()]...)
			n, err := floatValue(value)
			if err != nil {
				return err
			}
			if v.OverflowFloat(n) {
				return conversionError(value.LiteralSpan, nil, "number %s is out of range for %s", value.Literal, t)
			}
			v.SetFloat(n)
			return nil
		}, nil

	case reflect.Interface:
		if t.NumMethod() != 0 {
			break
		}
		return func(value *ast.Value, v reflect.Value, ctx *Context) error {
			natural, err := naturalValue(value)
			if err != nil {
				return err
			}
			if natural == nil {
				v.Set(reflect.Zero(t))
			} else {
				v.Set(reflect.ValueOf(natural))
			}
			return nil
		}, nil
	}
	return nil, fmt.Errorf("can not decode a value into %s", t)
}

// strDecoder parses the text of a string value into t.
func strDecoder(t reflect.Type) (valueDecoder, error) {
	var parse func(s string, v reflect.Value) error
	switch {
	case reflect.PtrTo(t).Implements(textUnmarshalerType):
		parse = func(s string, v reflect.Value) error {
			return v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
		}
	case t == durationType:
		parse = func(s string, v reflect.Value) error {
			d, err := time.ParseDuration(s)
			v.SetInt(int64(d))
			return err
		}
	default:
		switch t.Kind() {
		case reflect.String:
			parse = func(s string, v reflect.Value) error {
				v.SetString(s)
				return nil
			}
		case reflect.Bool:
			parse = func(s string, v reflect.Value) error {
				b, err := strconv.ParseBool(s)
				v.SetBool(b)
				return err
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			parse = func(s string, v reflect.Value) error {
				n, err := strconv.ParseInt(s, 10, t.Bits())
				v.SetInt(n)
				return err
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			parse = func(s string, v reflect.Value) error {
				n, err := strconv.ParseUint(s, 10, t.Bits())
				v.SetUint(n)
				return err
			}
		case reflect.Float32, reflect.Float64:
			parse = func(s string, v reflect.Value) error {
				n, err := strconv.ParseFloat(s, t.Bits())
				v.SetFloat(n)
				return err
			}
		default:
			return nil, fmt.Errorf("can not parse a string into %s", t)
		}
	}
	return func(value *ast.Value, v reflect.Value, ctx *Context) error {
		if value.Type != nil {
			return typeNameError(value.Type, nil)
		}
		s, ok := value.Literal.(ast.String)
		if !ok {
			return scalarKindError(value.LiteralSpan, "string", value.Literal)
		}
		if err := parse(string(s), v); err != nil {
			return conversionError(value.LiteralSpan, err, "invalid %s %s", t, value.Literal)
		}
		return nil
	}, nil
}

// checkBuiltin emits an error if the value has a type annotation that is
// not one of "allowed".
func checkBuiltin(value *ast.Value, ctx *Context, allowed ...ast.BuiltinType) {
	if value.Type == nil {
		return
	}
	if b, ok := value.Type.Builtin(); ok {
		for _, a := range allowed {
			if a == b {
				return
			}
		}
	}
	ctx.EmitError(typeNameError(value.Type, allowed))
}

func stringValue(value *ast.Value, ctx *Context) (string, error) {
	checkBuiltin(value, ctx)
	s, ok := value.Literal.(ast.String)
	if !ok {
		return "", scalarKindError(value.LiteralSpan, "string", value.Literal)
	}
	return string(s), nil
}

func floatValue(value *ast.Value) (float64, error) {
	var (
		n   float64
		err error
	)
	switch lit := value.Literal.(type) {
	case ast.Decimal:
		n, err = lit.Float64()
	case ast.Integer:
		n, err = lit.Float64()
	default:
		return 0, scalarKindError(value.LiteralSpan, "number", value.Literal)
	}
	if err != nil {
		return 0, conversionError(value.LiteralSpan, err, "invalid number %s", value.Literal)
	}
	return n, nil
}

func decodeBigInt(value *ast.Value, v reflect.Value, ctx *Context) error {
	checkBuiltin(value, ctx, ast.I64, ast.U64, ast.Isize, ast.Usize)
	lit, ok := value.Literal.(ast.Integer)
	if !ok {
		return scalarKindError(value.LiteralSpan, "integer", value.Literal)
	}
	n, err := lit.Big()
	if err != nil {
		return conversionError(value.LiteralSpan, err, "invalid integer %s", lit)
	}
	v.Set(reflect.ValueOf(n))
	return nil
}

// decodeBytes decodes a string into []byte, base64 decoding it if it is
// annotated with (base64).
func decodeBytes(value *ast.Value, v reflect.Value, ctx *Context) error {
	encoded := false
	if value.Type != nil {
		if b, ok := value.Type.Builtin(); ok && b == ast.Base64 {
			encoded = true
		} else {
			ctx.EmitError(typeNameError(value.Type, []ast.BuiltinType{ast.Base64}))
		}
	}
	s, ok := value.Literal.(ast.String)
	if !ok {
		return scalarKindError(value.LiteralSpan, "string", value.Literal)
	}
	if !encoded {
		v.SetBytes([]byte(s))
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return conversionError(value.LiteralSpan, err, "invalid base64")
	}
	v.SetBytes(data)
	return nil
}

// naturalValue returns the Go value a literal naturally maps to.
func naturalValue(value *ast.Value) (interface{}, error) {
	switch lit := value.Literal.(type) {
	case ast.String:
		return string(lit), nil
	case ast.Bool:
		return bool(lit), nil
	case ast.Null:
		return nil, nil
	case ast.Integer:
		if n, err := lit.Int64(); err == nil {
			return n, nil
		}
		n, err := lit.Big()
		if err != nil {
			return nil, conversionError(value.LiteralSpan, err, "invalid integer %s", lit)
		}
		return n, nil
	case ast.Decimal:
		return floatValue(value)
	}
	return nil, scalarKindError(value.LiteralSpan, "value", value.Literal)
}

// DecodeInteger decodes an integer literal into T, for use by ScalarDecoder
// implementations.
func DecodeInteger[T constraints.Integer](literal ast.Literal, span ast.Span) (T, error) {
	var zero T
	lit, ok := literal.(ast.Integer)
	if !ok {
		return zero, scalarKindError(span, "integer", literal)
	}
	signed := ^zero < 0
	if signed {
		n, err := lit.Int64()
		if err != nil || int64(T(n)) != n {
			return zero, conversionError(span, nil, "integer %s is out of range for %T", lit, zero)
		}
		return T(n), nil
	}
	n, err := lit.Uint64()
	if err != nil || uint64(T(n)) != n {
		return zero, conversionError(span, nil, "integer %s is out of range for %T", lit, zero)
	}
	return T(n), nil
}

// DecodeFloat decodes a decimal or integer literal into T, for use by
// ScalarDecoder implementations.
func DecodeFloat[T constraints.Float](literal ast.Literal, span ast.Span) (T, error) {
	n, err := floatValue(&ast.Value{Literal: literal, LiteralSpan: span})
	if err != nil {
		return 0, err
	}
	if _, ok := any(T(0)).(float32); ok && math.Abs(n) > math.MaxFloat32 && !math.IsInf(n, 0) {
		return 0, conversionError(span, nil, "number %s is out of range for float32", literal)
	}
	return T(n), nil
}

// Variant is one accepted name of an enumeration.
type Variant[T any] struct {
	Name  string
	Value T
}

// DecodeEnum decodes a string literal naming one of "variants".
func DecodeEnum[T any](literal ast.Literal, span ast.Span, variants ...Variant[T]) (T, error) {
	var zero T
	s, ok := literal.(ast.String)
	if !ok {
		return zero, scalarKindError(span, "string", literal)
	}
	for _, variant := range variants {
		if variant.Name == string(s) {
			return variant.Value, nil
		}
	}
	return zero, conversionError(span, nil, "%s", expectedOneOf(variants))
}

func expectedOneOf[T any](variants []Variant[T]) string {
	names := make([]string, 0, len(variants))
	for _, variant := range variants {
		names = append(names, "`"+escape(variant.Name)+"`")
	}
	if len(names) <= 3 {
		return "expected one of " + strings.Join(names, ", ")
	}
	return fmt.Sprintf("expected %s, or one of %d others", strings.Join(names[:2], ", "), len(names)-2)
}
