// Package source holds the inputs of a script: the main program and an optional support
// library, each originating from an in-memory buffer, a pre-parsed module or a file. Modules are
// materialised lazily through a compiler Context, and every source contributes its identity to
// the dependency set that validates cache entries.
package source

import (
	"context"
	"net/url"

	"github.com/robbyt/go-jitscript/execution/dependency"
)

// MaxSourceSize bounds the bytes a single source may hold in memory.
const MaxSourceSize = 256 << 20

// Flags alter how a source is treated.
type Flags uint32

const (
	// FlagSkipDependencyHash keeps the source out of the dependency set. Use it for sources
	// whose content is already covered by another dependency.
	FlagSkipDependencyHash Flags = 1 << iota
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Module is a materialised source ready for a compiler.
type Module interface {
	Name() string
	Bytes() []byte
}

// Context parses modules for one compiler. Sources sharing a Context can be linked together.
type Context interface {
	ParseModule(ctx context.Context, name string, code []byte) (Module, error)
	Close(ctx context.Context) error
}

// ContextFactory creates parsing contexts.
type ContextFactory interface {
	NewContext(ctx context.Context) (Context, error)
}

// Info is one registered source.
type Info interface {
	Name() string
	GetSourceURL() *url.URL
	Flags() Flags

	// PrepareModule materialises the module. The shared Context is used when non-nil,
	// otherwise a new one is created from the factory and owned by this source. A module
	// that is already materialised is not parsed again.
	PrepareModule(ctx context.Context, factory ContextFactory, shared Context) error

	// Module returns the materialised module or nil before PrepareModule succeeds.
	Module() Module

	// Context returns the context the module was parsed in.
	Context() Context

	// IntroDependency adds this source's identity to the set.
	IntroDependency(deps *dependency.Set)

	// Close releases an owned context.
	Close(ctx context.Context) error
}
