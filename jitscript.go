// Package jitscript creates scripts that compile once and are reused from an on-disk cache
// afterwards. The constructors here pick a compiler backend and register the sources; the
// lifecycle itself lives in execution/script.
package jitscript

import (
	"fmt"

	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/machines/risor"
	"github.com/robbyt/go-jitscript/machines/starlark"
	"github.com/robbyt/go-jitscript/machines/types"
	"github.com/robbyt/go-jitscript/machines/wasm"
	"github.com/robbyt/go-jitscript/options"
)

// NewWasmScript creates a script for WebAssembly modules
func NewWasmScript(opts ...options.Option) (*script.Script, error) {
	return newScript(types.Wasm, opts...)
}

// NewStarlarkScript creates a script for Starlark sources
func NewStarlarkScript(opts ...options.Option) (*script.Script, error) {
	return newScript(types.Starlark, opts...)
}

// NewRisorScript creates a script for Risor sources
func NewRisorScript(opts ...options.Option) (*script.Script, error) {
	return newScript(types.Risor, opts...)
}

// NewScript creates a script for the machine chosen with options.WithMachineType
func NewScript(opts ...options.Option) (*script.Script, error) {
	return newScript("", opts...)
}

func newScript(machineType types.Type, opts ...options.Option) (*script.Script, error) {
	// Initialize with machine defaults
	cfg := options.DefaultConfig(machineType)

	// Apply all options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}

	// Apply defaults option as final step to fill in any missing values
	if err := options.WithDefaults()(cfg); err != nil {
		return nil, fmt.Errorf("error applying defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return createScript(cfg)
}

// createScript builds the compiler and the script, then registers the configured sources.
func createScript(cfg *options.Config) (*script.Script, error) {
	scriptOpts := cfg.GetScriptOptions()
	if name := cfg.GetCacheEnv(); name != "" {
		scriptOpts = append(
			[]script.Option{script.WithCacheDisabled(script.EnvCacheDisabled(name))},
			scriptOpts...,
		)
	}

	var s *script.Script
	var err error
	switch cfg.GetMachineType() {
	case types.Wasm:
		s, err = wasm.NewScript(cfg.GetHandler(), cfg.GetWasmOptions(), scriptOpts...)
	case types.Starlark:
		s, err = starlark.NewScript(cfg.GetHandler(), cfg.GetStarlarkOptions(), scriptOpts...)
	case types.Risor:
		s, err = risor.NewScript(cfg.GetHandler(), cfg.GetRisorOptions(), scriptOpts...)
	default:
		return nil, fmt.Errorf("unsupported machine type: %s", cfg.GetMachineType())
	}
	if err != nil {
		return nil, err
	}

	for _, slot := range []int{script.SlotMain, script.SlotLibrary} {
		if err := addSource(s, slot, cfg.GetSource(slot)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func addSource(s *script.Script, slot int, src *options.Source) error {
	switch {
	case src == nil:
		return nil
	case src.Path != "":
		return s.AddSourceFile(slot, src.Path, src.Flags)
	default:
		return s.AddSourceBuffer(slot, src.Name, src.Code, src.Flags)
	}
}
