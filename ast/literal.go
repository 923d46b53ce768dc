package ast

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Kind of a Literal.
type Kind int

// Literal kinds.
const (
	KindString Kind = iota
	KindInteger
	KindDecimal
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// A Literal is one of String, Integer, Decimal, Bool or Null.
type Literal interface {
	Kind() Kind
	// String returns the canonical KDL representation of the literal.
	String() string
	literal()
}

// String literal, unescaped.
type String string

func (String) Kind() Kind         { return KindString }
func (s String) String() string   { return Quote(string(s)) }
func (s String) GoString() string { return fmt.Sprintf("ast.String(%q)", string(s)) }
func (String) literal()           {}

// Bool literal.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) literal() {}

// Null literal.
type Null struct{}

func (Null) Kind() Kind       { return KindNull }
func (Null) String() string   { return "null" }
func (Null) GoString() string { return "ast.Null{}" }
func (Null) literal()         {}

// Radix of an Integer literal.
type Radix int

// Supported radixes.
const (
	Bin Radix = 2
	Oct Radix = 8
	Dec Radix = 10
	Hex Radix = 16
)

func (r Radix) prefix() string {
	switch r {
	case Bin:
		return "0b"
	case Oct:
		return "0o"
	case Hex:
		return "0x"
	}
	return ""
}

// Integer literal.
//
// Digits holds an optional sign followed by the digits in Radix, with any
// "_" separators and the radix prefix removed.
type Integer struct {
	Radix  Radix
	Digits string
}

func (Integer) Kind() Kind { return KindInteger }
func (Integer) literal()   {}

func (i Integer) String() string {
	sign, digits := splitSign(i.Digits)
	if sign == "+" {
		sign = ""
	}
	return sign + i.Radix.prefix() + digits
}

// Negative returns true if the literal has a leading minus sign.
func (i Integer) Negative() bool { return strings.HasPrefix(i.Digits, "-") }

// Int64 converts the literal to an int64.
func (i Integer) Int64() (int64, error) {
	return strconv.ParseInt(i.Digits, int(i.Radix), 64)
}

// Uint64 converts the literal to a uint64.
func (i Integer) Uint64() (uint64, error) {
	if i.Negative() {
		return 0, strconv.ErrRange
	}
	_, digits := splitSign(i.Digits)
	return strconv.ParseUint(digits, int(i.Radix), 64)
}

// Big converts the literal to an arbitrary precision integer.
func (i Integer) Big() (*big.Int, error) {
	sign, digits := splitSign(i.Digits)
	if sign == "+" {
		sign = ""
	}
	n, ok := new(big.Int).SetString(sign+digits, int(i.Radix))
	if !ok {
		return nil, strconv.ErrSyntax
	}
	return n, nil
}

// Float64 converts the literal to a float64, losing precision for large values.
func (i Integer) Float64() (float64, error) {
	n, err := i.Big()
	if err != nil {
		return 0, err
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f, nil
}

// Decimal literal.
//
// Mantissa holds the sign, integer and fractional part, Exponent holds
// the (possibly signed) exponent digits or is empty.
type Decimal struct {
	Mantissa string
	Exponent string
}

func (Decimal) Kind() Kind { return KindDecimal }
func (Decimal) literal()   {}

func (d Decimal) String() string {
	mantissa := strings.TrimPrefix(d.Mantissa, "+")
	if d.Exponent == "" {
		return mantissa
	}
	return mantissa + "e" + d.Exponent
}

// Float64 converts the literal to a float64.
func (d Decimal) Float64() (float64, error) {
	return strconv.ParseFloat(d.String(), 64)
}

// Big converts the literal to an arbitrary precision float.
func (d Decimal) Big() (*big.Float, error) {
	f, _, err := big.ParseFloat(d.String(), 10, 256, big.ToNearestEven)
	return f, err
}

func splitSign(s string) (sign, rest string) {
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return s[:1], s[1:]
	}
	return "", s
}

// Quote a string using KDL escape rules.
func Quote(s string) string {
	var w strings.Builder
	w.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.WriteString(`\"`)
		case '\\':
			w.WriteString(`\\`)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		case '\t':
			w.WriteString(`\t`)
		case '\b':
			w.WriteString(`\b`)
		case '\f':
			w.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&w, `\u{%x}`, r)
				continue
			}
			w.WriteRune(r)
		}
	}
	w.WriteByte('"')
	return w.String()
}
