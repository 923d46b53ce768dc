package kdl

import (
	"reflect"
)

// structField is a tagged field of a struct, possibly promoted from an
// embedded struct.
type structField struct {
	reflect.StructField
	Index []int
	Tag   string
}

// Recursively collect tagged fields of s. Untagged embedded structs have
// their fields inlined.
func collectFields(s reflect.Type) (out []structField) {
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		tag, tagged := fieldTag(f)
		if tag == "-" {
			continue
		}
		if f.Anonymous && !tagged && f.Type.Kind() == reflect.Struct {
			for _, inner := range collectFields(f.Type) {
				inner.Index = append(append([]int{}, f.Index...), inner.Index...)
				out = append(out, inner)
			}
			continue
		}
		if !tagged {
			continue
		}
		out = append(out, structField{StructField: f, Index: f.Index, Tag: tag})
	}
	return
}
