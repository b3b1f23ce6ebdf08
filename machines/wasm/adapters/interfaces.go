// Package adapters puts the Extism SDK behind the two interfaces the wasm compiler needs: a
// compiled code image and an instance of it. Tests substitute the mocks in this package.
package adapters

import (
	"context"

	extismSDK "github.com/extism/go-sdk"
)

// CompiledPlugin is a linked code image loaded into a wazero runtime. It can be instantiated
// any number of times and must be closed once.
type CompiledPlugin interface {
	Instance(ctx context.Context, config extismSDK.PluginInstanceConfig) (PluginInstance, error)
	Close(ctx context.Context) error
}

// PluginInstance is one instantiation of a CompiledPlugin. Kernels are called by export name.
type PluginInstance interface {
	CallWithContext(ctx context.Context, name string, data []byte) (uint32, []byte, error)
	FunctionExists(name string) bool
	Close(ctx context.Context) error
}
