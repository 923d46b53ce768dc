// Package kdl parses KDL documents and decodes them directly into Go
// values, guided by struct tags. The approach is philosophically similar to
// how other marshallers work in Go.
//
// Each tagged field of a struct declares the role it plays when a node is
// decoded into the struct:
//
//   - `kdl:"argument"` The next positional argument.
//   - `kdl:"arguments"` All remaining arguments, into a slice.
//   - `kdl:"property"` The property named after the field.
//   - `kdl:"properties"` All remaining properties, into a map.
//   - `kdl:"child"` The single child node named after the field.
//   - `kdl:"children"` All remaining children, into a slice.
//   - `kdl:"children,name=x"` All children named "x", into a slice.
//   - `kdl:"flatten"` Properties and children claimed by a nested struct.
//   - `kdl:"span"`, `kdl:"node_name"`, `kdl:"type_name"` Node metadata.
//
// Names default to the kebab-case form of the field name, eg. "MaxSize"
// is matched by "max-size". The options "name=<name>", "optional",
// "default", "default=<kdl value>", "str" and "unwrap=<role>" modify a
// field. A child unwrapped with "unwrap=property:<name>" reads the property
// "name" of the child instead of the one named after the field. Pointer
// fields are always optional.
//
// Here's an example:
//
//	type Route struct {
//	    Path    string            `kdl:"argument"`
//	    Methods []string          `kdl:"arguments"`
//	    Timeout time.Duration     `kdl:"property,default=\"30s\""`
//	    Headers map[string]string `kdl:"properties"`
//	    Backend string            `kdl:"child,unwrap=argument"`
//	}
//
//	type Config struct {
//	    Listen string   `kdl:"child,unwrap=argument"`
//	    Routes []*Route `kdl:"children,name=route"`
//	}
//
// Which decodes:
//
//	listen "127.0.0.1:8080"
//	route "/api" "GET" "POST" timeout="5s" {
//	    backend "http://api.internal"
//	}
package kdl
