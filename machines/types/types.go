// Package types names the compiler backends a script can be prepared with.
package types

import "fmt"

// Type identifies a compiler backend.
type Type string

const (
	Wasm     Type = "wasm"
	Starlark Type = "starlark"
	Risor    Type = "risor"
)

// Parse returns the Type for a name, or an error for an unknown backend.
func Parse(name string) (Type, error) {
	switch t := Type(name); t {
	case Wasm, Starlark, Risor:
		return t, nil
	default:
		return "", fmt.Errorf("unknown machine type: %q", name)
	}
}

func (t Type) String() string { return string(t) }
