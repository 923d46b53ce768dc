package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/units"
	"github.com/pelletier/go-toml"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v2"

	"github.com/alecthomas/kdl"
	"github.com/alecthomas/kdl/ast"
)

// Size is a byte count, written either as an integer or as a string such
// as "16MB".
type Size units.Base2Bytes

func (s *Size) DecodeScalar(literal ast.Literal, span ast.Span, ctx *kdl.Context) error {
	switch lit := literal.(type) {
	case ast.Integer:
		n, err := kdl.DecodeInteger[int64](literal, span)
		if err != nil {
			return err
		}
		*s = Size(n)
	case ast.String:
		n, err := units.ParseBase2Bytes(string(lit))
		if err != nil {
			return kdl.Wrapf(span, err, "invalid size %s", lit)
		}
		*s = Size(n)
	default:
		return kdl.Errorf(span, "expected size, found %s", literal.Kind())
	}
	return nil
}

type Upstream struct {
	Name    string   `kdl:"argument" json:"name" yaml:"name" toml:"name"`
	Hosts   []string `kdl:"arguments" json:"hosts" yaml:"hosts" toml:"hosts"`
	Weight  int      `kdl:"property,default=1" json:"weight" yaml:"weight" toml:"weight"`
	MaxBody Size     `kdl:"property,optional" json:"max_body,omitempty" yaml:"max_body,omitempty" toml:"max_body,omitempty"`
}

type Config struct {
	Listen    string      `kdl:"child,unwrap=argument" json:"listen" yaml:"listen" toml:"listen"`
	Debug     bool        `kdl:"child" json:"debug" yaml:"debug" toml:"debug"`
	Upstreams []*Upstream `kdl:"children,name=upstream" json:"upstreams" yaml:"upstreams" toml:"upstreams"`
}

var (
	formatFlag = kingpin.Flag("format", "Output format.").Short('f').Default("json").Enum("json", "yaml", "toml")
	fileArg    = kingpin.Arg("file", "KDL configuration file to convert.").Required().ExistingFile()
)

func main() {
	kingpin.CommandLine.Help = `Converts a KDL proxy configuration to JSON, YAML or TOML. The
configuration is in the form:

  listen "127.0.0.1:8080"
  debug
  upstream "api" "10.0.0.1:80" "10.0.0.2:80" weight=2 max-body="16MB"
`
	kingpin.Parse()

	data, err := os.ReadFile(*fileArg)
	kingpin.FatalIfError(err, "")

	config, err := kdl.Parse[Config](*fileArg, string(data))
	if serr, ok := err.(*kdl.SourceError); ok {
		_ = serr.Render(os.Stderr, false)
		os.Exit(1)
	}
	kingpin.FatalIfError(err, "")

	var out []byte
	switch *formatFlag {
	case "yaml":
		out, err = yaml.Marshal(config)
	case "toml":
		out, err = toml.Marshal(config)
	default:
		out, err = json.MarshalIndent(config, "", "  ")
	}
	kingpin.FatalIfError(err, "")
	fmt.Printf("%s\n", out)
}
