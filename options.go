package kdl

import (
	"io"

	"github.com/alecthomas/kdl/grammar"
)

// An Option to modify the behaviour of parsing and decoding.
type Option func(c *config) error

type config struct {
	trace     io.Writer
	maxErrors int
	setup     []func(ctx *Context)
}

func newConfig(options []Option) (*config, error) {
	c := &config{maxErrors: grammar.DefaultMaxErrors}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *config) grammarOptions() []grammar.Option {
	options := []grammar.Option{grammar.MaxErrors(c.maxErrors)}
	if c.trace != nil {
		options = append(options, grammar.Trace(c.trace))
	}
	return options
}

// Trace the grammar rules and decoding steps to "w".
func Trace(w io.Writer) Option {
	return func(c *config) error {
		c.trace = w
		return nil
	}
}

// MaxErrors sets the number of syntax errors after which parsing stops.
func MaxErrors(n int) Option {
	return func(c *config) error {
		c.maxErrors = n
		return nil
	}
}

// WithContext registers a function that can populate the decode Context,
// eg. with Set, before decoding starts.
func WithContext(setup func(ctx *Context)) Option {
	return func(c *config) error {
		c.setup = append(c.setup, setup)
		return nil
	}
}

// with returns a copy of the config with "options" applied.
func (c *config) with(options []Option) (*config, error) {
	if len(options) == 0 {
		return c, nil
	}
	out := *c
	out.setup = append([]func(ctx *Context){}, c.setup...)
	for _, option := range options {
		if err := option(&out); err != nil {
			return nil, err
		}
	}
	return &out, nil
}
