// Package load builds Extism compiled plugins from already validated wasm modules.
package load

import (
	"context"
	"fmt"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-jitscript/machines/wasm/adapters"
	"github.com/tetratelabs/wazero"
)

// MainModuleName is the manifest name Extism treats as the plugin's main module.
const MainModuleName = "main"

// Settings holds the runtime configuration of a loaded plugin.
type Settings struct {
	EnableWASI    bool
	RuntimeConfig wazero.RuntimeConfig
}

// Module is one named entry of the plugin manifest.
type Module struct {
	Name string
	Data []byte
}

func withDefaults(settings *Settings) *Settings {
	if settings == nil {
		settings = &Settings{EnableWASI: true}
	}
	if settings.RuntimeConfig == nil {
		settings.RuntimeConfig = wazero.NewRuntimeConfig()
	}
	return settings
}

// Plugin compiles the modules into a single plugin. Modules are instantiated in order, so
// libraries must precede the module importing them. The main module should be named
// MainModuleName.
func Plugin(
	ctx context.Context,
	modules []Module,
	settings *Settings,
	hostFuncs []extismSDK.HostFunction,
) (adapters.CompiledPlugin, error) {
	if len(modules) == 0 {
		return nil, ErrNoModules
	}
	settings = withDefaults(settings)

	wasm := make([]extismSDK.Wasm, 0, len(modules))
	for _, m := range modules {
		wasm = append(wasm, extismSDK.WasmData{Data: m.Data, Name: m.Name})
	}
	manifest := extismSDK.Manifest{Wasm: wasm}
	config := extismSDK.PluginConfig{
		EnableWasi:    settings.EnableWASI,
		RuntimeConfig: settings.RuntimeConfig,
	}

	plugin, err := extismSDK.NewCompiledPlugin(ctx, manifest, config, hostFuncs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return adapters.Wrap(plugin), nil
}
