package options

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/execution/script/source"
	risorCompiler "github.com/robbyt/go-jitscript/machines/risor/compiler"
	starlarkCompiler "github.com/robbyt/go-jitscript/machines/starlark/compiler"
	"github.com/robbyt/go-jitscript/machines/types"
	wasmCompiler "github.com/robbyt/go-jitscript/machines/wasm/compiler"
)

// Source describes a script source to register at construction. Exactly one of Path or Code
// must be set.
type Source struct {
	Name  string
	Path  string
	Code  []byte
	Flags source.Flags
}

func (s *Source) validate() error {
	switch {
	case s.Path != "" && s.Code != nil:
		return errors.New("source cannot have both a path and code")
	case s.Path == "" && s.Code == nil:
		return errors.New("source needs a path or code")
	case s.Code != nil && s.Name == "":
		return errors.New("source code needs a name")
	}
	return nil
}

// Config holds all configuration for creating a script
type Config struct {
	// Logger for the script and its compiler
	handler slog.Handler
	// Type of machine to compile with (wasm, starlark, risor)
	machineType types.Type
	// Environment variable disabling the cache, empty for none
	cacheEnv string
	// Sources by slot
	sources [2]*Source
	// Options passed to script.New
	scriptOptions []script.Option
	// Machine-specific compiler options
	wasmOptions     []wasmCompiler.FunctionalOption
	starlarkOptions []starlarkCompiler.FunctionalOption
	risorOptions    []risorCompiler.FunctionalOption
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogger sets the log handler for the script and its compiler
func WithLogger(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler != nil {
			c.handler = handler
		}
		return nil
	}
}

// WithMachineType selects the compiler backend
func WithMachineType(machineType types.Type) Option {
	return func(c *Config) error {
		if _, err := types.Parse(string(machineType)); err != nil {
			return err
		}
		c.machineType = machineType
		return nil
	}
}

// WithCacheEnv names the environment variable that disables the cache when set to a true
// value. An empty name removes the override.
func WithCacheEnv(name string) Option {
	return func(c *Config) error {
		c.cacheEnv = name
		return nil
	}
}

func withSource(slot int, src Source) Option {
	return func(c *Config) error {
		if err := src.validate(); err != nil {
			return fmt.Errorf("slot %d: %w", slot, err)
		}
		c.sources[slot] = &src
		return nil
	}
}

// WithMainFile registers the main source from a file
func WithMainFile(path string, flags source.Flags) Option {
	return withSource(script.SlotMain, Source{Path: path, Flags: flags})
}

// WithMainBuffer registers the main source from memory
func WithMainBuffer(name string, code []byte, flags source.Flags) Option {
	return withSource(script.SlotMain, Source{Name: name, Code: code, Flags: flags})
}

// WithLibraryFile registers the support library from a file
func WithLibraryFile(path string, flags source.Flags) Option {
	return withSource(script.SlotLibrary, Source{Path: path, Flags: flags})
}

// WithLibraryBuffer registers the support library from memory
func WithLibraryBuffer(name string, code []byte, flags source.Flags) Option {
	return withSource(script.SlotLibrary, Source{Name: name, Code: code, Flags: flags})
}

// WithScriptOptions appends options passed to script.New
func WithScriptOptions(opts ...script.Option) Option {
	return func(c *Config) error {
		c.scriptOptions = append(c.scriptOptions, opts...)
		return nil
	}
}

// WithWasmOptions appends wasm compiler options. Only valid with the wasm machine.
func WithWasmOptions(opts ...wasmCompiler.FunctionalOption) Option {
	return func(c *Config) error {
		c.wasmOptions = append(c.wasmOptions, opts...)
		return nil
	}
}

// WithStarlarkOptions appends Starlark compiler options. Only valid with the starlark machine.
func WithStarlarkOptions(opts ...starlarkCompiler.FunctionalOption) Option {
	return func(c *Config) error {
		c.starlarkOptions = append(c.starlarkOptions, opts...)
		return nil
	}
}

// WithRisorOptions appends Risor compiler options. Only valid with the risor machine.
func WithRisorOptions(opts ...risorCompiler.FunctionalOption) Option {
	return func(c *Config) error {
		c.risorOptions = append(c.risorOptions, opts...)
		return nil
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.machineType == "" {
		return fmt.Errorf("no machine type specified")
	}
	if c.handler == nil {
		return fmt.Errorf("no log handler specified")
	}
	if len(c.wasmOptions) > 0 && c.machineType != types.Wasm {
		return fmt.Errorf("wasm options given for machine %s", c.machineType)
	}
	if len(c.starlarkOptions) > 0 && c.machineType != types.Starlark {
		return fmt.Errorf("starlark options given for machine %s", c.machineType)
	}
	if len(c.risorOptions) > 0 && c.machineType != types.Risor {
		return fmt.Errorf("risor options given for machine %s", c.machineType)
	}
	return nil
}

// GetHandler returns the configured log handler
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// SetHandler sets the log handler
func (c *Config) SetHandler(handler slog.Handler) {
	c.handler = handler
}

// GetMachineType returns the configured machine type
func (c *Config) GetMachineType() types.Type {
	return c.machineType
}

// SetMachineType sets the machine type
func (c *Config) SetMachineType(machineType types.Type) {
	c.machineType = machineType
}

// GetCacheEnv returns the name of the cache override variable
func (c *Config) GetCacheEnv() string {
	return c.cacheEnv
}

// GetSource returns the source registered for slot, or nil
func (c *Config) GetSource(slot int) *Source {
	if slot < 0 || slot >= len(c.sources) {
		return nil
	}
	return c.sources[slot]
}

// GetScriptOptions returns the options passed to script.New
func (c *Config) GetScriptOptions() []script.Option {
	return c.scriptOptions
}

// GetWasmOptions returns the wasm compiler options
func (c *Config) GetWasmOptions() []wasmCompiler.FunctionalOption {
	return c.wasmOptions
}

// GetStarlarkOptions returns the Starlark compiler options
func (c *Config) GetStarlarkOptions() []starlarkCompiler.FunctionalOption {
	return c.starlarkOptions
}

// GetRisorOptions returns the Risor compiler options
func (c *Config) GetRisorOptions() []risorCompiler.FunctionalOption {
	return c.risorOptions
}
