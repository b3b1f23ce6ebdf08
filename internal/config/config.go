// Package config reads the TOML job file of the jitscript command. A job names the machine,
// the sources and the cache location of one script.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"

	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/machines/risor"
	"github.com/robbyt/go-jitscript/machines/starlark"
	"github.com/robbyt/go-jitscript/machines/types"
	"github.com/robbyt/go-jitscript/machines/wasm"
	"github.com/robbyt/go-jitscript/options"
)

// Version is the only job file version understood.
const Version = "v1"

// Source is a [main] or [library] table.
type Source struct {
	Path               string `toml:"path"`
	SkipDependencyHash bool   `toml:"skip_dependency_hash"`
}

// Flags converts the table to source flags.
func (s *Source) Flags() source.Flags {
	var f source.Flags
	if s.SkipDependencyHash {
		f |= source.FlagSkipDependencyHash
	}
	return f
}

// Cache is the [cache] table.
type Cache struct {
	Dir string `toml:"dir"`
	Key string `toml:"key"`
	// Env names the variable that disables the cache, the default applies when empty.
	Env string `toml:"env"`
}

// Wasm is the [wasm] table.
type Wasm struct {
	DisableWASI bool `toml:"disable_wasi"`
	SkipLoad    bool `toml:"skip_load"`
	// CompilationCacheDir keeps wazero native code across runs.
	CompilationCacheDir string `toml:"compilation_cache_dir"`
	MemoryLimitPages    uint32 `toml:"memory_limit_pages"`
}

// Starlark is the [starlark] table.
type Starlark struct {
	Globals      []string `toml:"globals"`
	MaxInitSteps uint64   `toml:"max_init_steps"`
}

// Risor is the [risor] table.
type Risor struct {
	Globals []string `toml:"globals"`
}

// Config is a parsed job file.
type Config struct {
	Version  string   `toml:"version"`
	Machine  string   `toml:"machine"`
	Main     Source   `toml:"main"`
	Library  *Source  `toml:"library"`
	Cache    Cache    `toml:"cache"`
	Wasm     Wasm     `toml:"wasm"`
	Starlark Starlark `toml:"starlark"`
	Risor    Risor    `toml:"risor"`
	// Symbols maps external symbol names to addresses. Values are strings so that hex
	// addresses can be written as "0x1000".
	Symbols map[string]string `toml:"symbols"`
}

// Parse decodes a job file. A missing version means the current one.
func Parse(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, ErrNoSourceData
	}

	cfg := &Config{}
	if err := gotoml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseToml, err)
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}
	if cfg.Version != Version {
		return nil, fmt.Errorf("version %s is not supported: %w", cfg.Version, ErrUnsupportedVer)
	}
	return cfg, nil
}

// Load reads and parses the job file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Validate checks the fields needed to build a script.
func (c *Config) Validate() error {
	var errs []error
	if _, err := types.Parse(c.Machine); err != nil {
		errs = append(errs, err)
	}
	if c.Main.Path == "" {
		errs = append(errs, errors.New("main source path is empty"))
	}
	if c.Library != nil && c.Library.Path == "" {
		errs = append(errs, errors.New("library source path is empty"))
	}
	if (c.Cache.Dir == "") != (c.Cache.Key == "") {
		errs = append(errs, errors.New("cache dir and key must be set together"))
	}
	if _, err := c.symbolTable(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrFailedValidation, errors.Join(errs...))
	}
	return nil
}

func (c *Config) symbolTable() (map[string]uint64, error) {
	table := make(map[string]uint64, len(c.Symbols))
	for name, v := range c.Symbols {
		addr, err := strconv.ParseUint(strings.ReplaceAll(v, "_", ""), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: invalid address %q", name, v)
		}
		table[name] = addr
	}
	return table, nil
}

// Resolver returns a resolver over the [symbols] table, or nil when the table is empty.
func (c *Config) Resolver() (script.SymbolResolver, error) {
	if len(c.Symbols) == 0 {
		return nil, nil
	}
	table, err := c.symbolTable()
	if err != nil {
		return nil, err
	}
	return script.SymbolResolverFunc(func(name string) (uint64, bool) {
		addr, ok := table[name]
		return addr, ok
	}), nil
}

// Options converts the job into constructor options. Call Validate first.
func (c *Config) Options(handler slog.Handler) []options.Option {
	opts := []options.Option{
		options.WithLogger(handler),
		options.WithMachineType(types.Type(c.Machine)),
		options.WithMainFile(c.Main.Path, c.Main.Flags()),
	}
	if c.Library != nil {
		opts = append(opts, options.WithLibraryFile(c.Library.Path, c.Library.Flags()))
	}
	if c.Cache.Env != "" {
		opts = append(opts, options.WithCacheEnv(c.Cache.Env))
	}

	switch types.Type(c.Machine) {
	case types.Wasm:
		wasmOpts := []wasm.CompilerOption{
			wasm.WithWASIEnabled(!c.Wasm.DisableWASI),
			wasm.WithPluginLoading(!c.Wasm.SkipLoad),
		}
		if c.Wasm.CompilationCacheDir != "" {
			wasmOpts = append(wasmOpts, wasm.WithCompilationCacheDir(c.Wasm.CompilationCacheDir))
		}
		if c.Wasm.MemoryLimitPages > 0 {
			wasmOpts = append(wasmOpts, wasm.WithMemoryLimitPages(c.Wasm.MemoryLimitPages))
		}
		opts = append(opts, options.WithWasmOptions(wasmOpts...))
	case types.Starlark:
		var starOpts []starlark.CompilerOption
		if len(c.Starlark.Globals) > 0 {
			starOpts = append(starOpts, starlark.WithGlobals(c.Starlark.Globals))
		}
		if c.Starlark.MaxInitSteps > 0 {
			starOpts = append(starOpts, starlark.WithMaxInitSteps(c.Starlark.MaxInitSteps))
		}
		if len(starOpts) > 0 {
			opts = append(opts, options.WithStarlarkOptions(starOpts...))
		}
	case types.Risor:
		if len(c.Risor.Globals) > 0 {
			opts = append(opts, options.WithRisorOptions(risor.WithGlobals(c.Risor.Globals)))
		}
	}
	return opts
}
