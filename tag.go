package kdl

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// role of a struct field in the decoding schema.
type role int

const (
	roleNone role = iota
	roleArgument
	roleArguments
	roleProperty
	roleProperties
	roleChild
	roleChildren
	roleFlatten
	roleSpan
	roleNodeName
	roleTypeName
)

var roles = map[string]role{
	"argument":   roleArgument,
	"arguments":  roleArguments,
	"property":   roleProperty,
	"properties": roleProperties,
	"child":      roleChild,
	"children":   roleChildren,
	"flatten":    roleFlatten,
	"span":       roleSpan,
	"node_name":  roleNodeName,
	"type_name":  roleTypeName,
}

func (r role) String() string {
	for name, rr := range roles {
		if rr == r {
			return name
		}
	}
	return "none"
}

// flattenMode selects what a flatten field absorbs.
type flattenMode int

const (
	flattenProperties flattenMode = 1 << iota
	flattenChildren
)

// tag is a parsed `kdl:"..."` struct tag.
//
//	kdl:"<role>[,name=<name>][,unwrap=<role>[:<name>]][,str][,optional][,default[=<value>]]"
//	kdl:"flatten[=property|child]"
type tag struct {
	role       role
	name       string
	unwrap     role
	unwrapName string
	flatten    flattenMode
	str        bool
	optional   bool
	hasDefault bool
	// KDL text of the default value, if any.
	defaultValue string
}

func fieldTag(field reflect.StructField) (string, bool) {
	return field.Tag.Lookup("kdl")
}

func parseTag(text string) (tag, error) {
	out := tag{}
	items := strings.Split(text, ",")
	for i := 0; i < len(items); i++ {
		item := strings.TrimSpace(items[i])
		key, value, hasValue := strings.Cut(item, "=")
		if i == 0 {
			r, ok := roles[key]
			if !ok {
				return out, fmt.Errorf("unknown role %q", key)
			}
			out.role = r
			if r == roleFlatten {
				mode, err := parseFlatten(value, hasValue)
				if err != nil {
					return out, err
				}
				out.flatten = mode
			} else if hasValue {
				return out, fmt.Errorf("role %q does not take a value", key)
			}
			continue
		}
		switch key {
		case "name":
			if value == "" {
				return out, fmt.Errorf("name must not be empty")
			}
			out.name = value
		case "unwrap":
			unwrap, name, hasName := strings.Cut(value, ":")
			r, ok := roles[unwrap]
			if !ok || (r != roleArgument && r != roleArguments && r != roleProperty && r != roleProperties && r != roleChildren) {
				return out, fmt.Errorf("invalid unwrap role %q", unwrap)
			}
			if hasName && (r != roleProperty || name == "") {
				return out, fmt.Errorf("invalid unwrap %q, only a property can be named", value)
			}
			out.unwrap = r
			out.unwrapName = name
		case "str":
			out.str = true
		case "optional":
			out.optional = true
		case "default":
			out.hasDefault = true
			if hasValue {
				// The default is KDL text and may contain commas.
				out.defaultValue = strings.Join(append([]string{value}, items[i+1:]...), ",")
				i = len(items)
			}
		default:
			return out, fmt.Errorf("unknown tag option %q", key)
		}
	}
	return out, nil
}

func parseFlatten(value string, hasValue bool) (flattenMode, error) {
	if !hasValue {
		return flattenProperties | flattenChildren, nil
	}
	var mode flattenMode
	for _, part := range strings.Split(value, "|") {
		switch part {
		case "property":
			mode |= flattenProperties
		case "child":
			mode |= flattenChildren
		default:
			return 0, fmt.Errorf("invalid flatten mode %q", part)
		}
	}
	return mode, nil
}

// kebabCase converts a Go identifier to the default KDL name, eg.
// "AnotherOption" -> "another-option", "URLPath" -> "url-path".
func kebabCase(s string) string {
	runes := []rune(s)
	out := strings.Builder{}
	for i, r := range runes {
		if r == '_' {
			out.WriteRune('-')
			continue
		}
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					out.WriteRune('-')
				}
			}
			out.WriteRune(unicode.ToLower(r))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
