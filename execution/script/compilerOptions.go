package script

import "fmt"

// RelocModel selects how code addresses are resolved in a relocatable object.
type RelocModel int

const (
	RelocDefault RelocModel = iota
	RelocStatic
	RelocPIC
	RelocDynamicNoPIC
)

func (m RelocModel) String() string {
	switch m {
	case RelocStatic:
		return "static"
	case RelocPIC:
		return "pic"
	case RelocDynamicNoPIC:
		return "dynamic-no-pic"
	default:
		return "default"
	}
}

// ParseRelocModel returns the RelocModel named by s, as printed by String.
func ParseRelocModel(s string) (RelocModel, error) {
	for _, m := range []RelocModel{RelocDefault, RelocStatic, RelocPIC, RelocDynamicNoPIC} {
		if m.String() == s {
			return m, nil
		}
	}
	return RelocDefault, fmt.Errorf("unknown relocation model: %q", s)
}

// CompileOptions is passed to Compiler.Compile. Some values may only be useful for some
// compilers.
type CompileOptions struct {
	// RelocModel is the relocation model of the produced image.
	RelocModel RelocModel

	// LoadAfterCompile asks the compiler to load the image into its runtime so that it can be
	// executed. Relocatable objects are written to disk instead and skip loading.
	LoadAfterCompile bool

	// Resolver resolves external symbols, may be nil.
	Resolver SymbolResolver
}

// DefaultCompileOptions are used by PrepareExecutable.
func DefaultCompileOptions() CompileOptions {
	return CompileOptions{RelocModel: RelocDefault, LoadAfterCompile: true}
}
