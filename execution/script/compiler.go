package script

import (
	"context"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script/source"
	machineTypes "github.com/robbyt/go-jitscript/machines/types"
)

// Compiler turns a main module, optionally linked with a support library, into an executable
// code image. Implementations live under machines/.
//
// Example usage:
//
//	comp, _ := wasm.NewCompiler(wasm.WithLogHandler(handler))
//	s, _ := script.New(comp)
//	_ = s.AddSourceBuffer(script.SlotMain, "main", code, 0)
//	err := s.PrepareExecutable(ctx, cacheDir, "main", 0)
type Compiler interface {
	source.ContextFactory

	// Compile produces an executable from the materialised modules. lib may be nil. The
	// returned error text is kept as the script's compiler diagnostic.
	Compile(ctx context.Context, main, lib source.Module, opts CompileOptions) (Executable, error)

	// Load makes a validated cache entry runnable again, resolving external symbols through
	// opts.Resolver. The executable answers queries the same way cached does.
	Load(ctx context.Context, cached artifact.Backend, opts CompileOptions) (Executable, error)

	// RuntimeDependency identifies the runtime support library compiled code relies on.
	RuntimeDependency() dependency.Entry

	// Machine returns the backend type, used to name the cache context slot.
	Machine() machineTypes.Type
}

// Executable is the in-memory result of a successful compile or cache load.
type Executable interface {
	artifact.Backend

	// Close releases runtime resources held by a loaded executable.
	Close(ctx context.Context) error
}

// SymbolResolver resolves external symbols left undefined by the sources.
type SymbolResolver interface {
	ResolveSymbol(name string) (uint64, bool)
}

// SymbolResolverFunc adapts a function to SymbolResolver.
type SymbolResolverFunc func(name string) (uint64, bool)

func (f SymbolResolverFunc) ResolveSymbol(name string) (uint64, bool) { return f(name) }

// ThreadableRuntime is an optional extension of SymbolResolver used only by the legacy
// compute runtime, which tracks whether its kernels may run on several threads. The flag is
// recorded in cache entries and cleared on load when the entry says the code is not
// threadable. No other runtime should implement it.
type ThreadableRuntime interface {
	IsThreadable() bool
	ClearThreadable()
}
