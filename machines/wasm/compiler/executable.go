package compiler

import (
	"context"
	"sync"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/machines/wasm/adapters"
)

// Executable is a compiled wasm image, optionally loaded as an Extism plugin.
type Executable struct {
	*artifact.Table
	plugin   adapters.CompiledPlugin
	linkName string

	closeOnce sync.Once
	closeErr  error
}

var _ script.Executable = (*Executable)(nil)

// Plugin returns the loaded plugin, or nil when the image was not loaded.
func (e *Executable) Plugin() adapters.CompiledPlugin { return e.plugin }

// LibraryName returns the module name the library was linked as, or "" without a library.
func (e *Executable) LibraryName() string { return e.linkName }

// Close releases the loaded plugin.
func (e *Executable) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		if e.plugin != nil {
			e.closeErr = e.plugin.Close(ctx)
		}
	})
	return e.closeErr
}
