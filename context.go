package kdl

import (
	"io"
	"reflect"
)

// Context for a single decode.
//
// A Context accumulates errors that do not abort decoding, and carries
// caller supplied values that custom decoders can retrieve by type. A
// Context must not be shared between concurrent decodes.
type Context struct {
	errors []error
	values map[reflect.Type]interface{}
	trace  io.Writer
	indent int

	// Single child fields of flatten targets that have been decoded.
	claimed map[claimKey]bool
}

type claimKey struct {
	target uintptr
	field  *field
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{values: map[reflect.Type]interface{}{}}
}

// EmitError records an error without aborting the current decode.
func (c *Context) EmitError(err error) {
	if err == nil {
		return
	}
	c.errors = append(c.errors, err)
}

// HasErrors returns true if at least one error was emitted.
func (c *Context) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all emitted errors in order, and clears them from the Context.
func (c *Context) Errors() []error {
	errs := c.errors
	c.errors = nil
	return errs
}

// Set a value of type T in the Context, replacing any existing value of that type.
func Set[T any](c *Context, value T) {
	c.values[reflect.TypeOf((*T)(nil)).Elem()] = value
}

// Get the value of type T from the Context.
func Get[T any](c *Context) (T, bool) {
	value, ok := c.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		var zero T
		return zero, false
	}
	return value.(T), true
}

// resetClaims forgets the children decoded into the flatten target v.
func (c *Context) resetClaims(v reflect.Value, s *schema) {
	if len(c.claimed) == 0 {
		return
	}
	target := v.Addr().Pointer()
	for _, f := range s.children {
		delete(c.claimed, claimKey{target, f})
	}
}

// claim records that child field f of the flatten target v was decoded. It
// returns false if it already was.
func (c *Context) claim(v reflect.Value, f *field) bool {
	key := claimKey{v.Addr().Pointer(), f}
	if c.claimed[key] {
		return false
	}
	if c.claimed == nil {
		c.claimed = map[claimKey]bool{}
	}
	c.claimed[key] = true
	return true
}
