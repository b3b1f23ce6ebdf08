package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	extismSDK "github.com/extism/go-sdk"
	"github.com/tetratelabs/wazero"
)

// maxMemoryPages is the wasm32 limit of 4GiB in 64KiB pages.
const maxMemoryPages = 65536

// Options configures the wasm Compiler.
type Options struct {
	LogHandler slog.Handler
	Logger     *slog.Logger

	// EnableWASI exposes WASI to plugins built by load-after-compile.
	EnableWASI bool
	// LoadPlugins controls whether CompileOptions.LoadAfterCompile builds a runnable plugin.
	LoadPlugins bool

	// RuntimeConfig is the base configuration of the validation runtime and of loaded plugins.
	RuntimeConfig wazero.RuntimeConfig
	// CompilationCacheDir keeps wazero's native code between processes when set.
	CompilationCacheDir string
	// MemoryLimitPages caps linear memory of validated and loaded modules. Zero keeps the
	// runtime default.
	MemoryLimitPages uint32

	// HostFunctions are linked into every loaded plugin, ahead of resolver imports.
	HostFunctions []extismSDK.HostFunction
}

// FunctionalOption mutates Options during NewCompiler.
type FunctionalOption func(*Options) error

// WithLogHandler sets the slog handler used for compiler logs. It replaces any logger set
// earlier.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(cfg *Options) error {
		if handler == nil {
			return errors.New("log handler cannot be nil")
		}
		cfg.LogHandler, cfg.Logger = handler, nil
		return nil
	}
}

// WithLogger sets a ready-made logger. It replaces any handler set earlier.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(cfg *Options) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.Logger, cfg.LogHandler = logger, nil
		return nil
	}
}

// WithWASIEnabled toggles WASI for loaded plugins.
func WithWASIEnabled(enabled bool) FunctionalOption {
	return func(cfg *Options) error {
		cfg.EnableWASI = enabled
		return nil
	}
}

// WithRuntimeConfig replaces the base wazero configuration. The compilation cache and memory
// limit options are applied on top of it.
func WithRuntimeConfig(config wazero.RuntimeConfig) FunctionalOption {
	return func(cfg *Options) error {
		if config == nil {
			return errors.New("runtime config cannot be nil")
		}
		cfg.RuntimeConfig = config
		return nil
	}
}

// WithCompilationCacheDir stores wazero's compiled native code under dir, so validating the
// same module again in a later process skips machine code generation.
func WithCompilationCacheDir(dir string) FunctionalOption {
	return func(cfg *Options) error {
		if dir == "" {
			return errors.New("compilation cache dir cannot be empty")
		}
		cfg.CompilationCacheDir = dir
		return nil
	}
}

// WithMemoryLimitPages limits the linear memory any module may declare or grow to.
func WithMemoryLimitPages(pages uint32) FunctionalOption {
	return func(cfg *Options) error {
		if pages == 0 || pages > maxMemoryPages {
			return fmt.Errorf("memory limit must be between 1 and %d pages, got %d", maxMemoryPages, pages)
		}
		cfg.MemoryLimitPages = pages
		return nil
	}
}

// WithHostFunctions adds host functions available to loaded plugins.
func WithHostFunctions(funcs []extismSDK.HostFunction) FunctionalOption {
	return func(cfg *Options) error {
		cfg.HostFunctions = funcs
		return nil
	}
}

// WithPluginLoading enables or disables building a plugin after compile. When disabled the
// compiler only validates, links and describes the modules.
func WithPluginLoading(enabled bool) FunctionalOption {
	return func(cfg *Options) error {
		cfg.LoadPlugins = enabled
		return nil
	}
}

// ApplyDefaults fills in a stderr text handler, WASI, plugin loading and a default runtime.
func ApplyDefaults(cfg *Options) {
	if cfg.LogHandler == nil && cfg.Logger == nil {
		cfg.LogHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	cfg.EnableWASI = true
	cfg.LoadPlugins = true
	if cfg.RuntimeConfig == nil {
		cfg.RuntimeConfig = wazero.NewRuntimeConfig()
	}
	if cfg.HostFunctions == nil {
		cfg.HostFunctions = []extismSDK.HostFunction{}
	}
}

// Validate reports the first missing required setting.
func Validate(cfg *Options) error {
	switch {
	case cfg.LogHandler == nil && cfg.Logger == nil:
		return errors.New("either log handler or logger must be specified")
	case cfg.RuntimeConfig == nil:
		return errors.New("runtime config cannot be nil")
	case cfg.MemoryLimitPages > maxMemoryPages:
		return fmt.Errorf("memory limit of %d pages exceeds %d", cfg.MemoryLimitPages, maxMemoryPages)
	}
	return nil
}

// runtimeConfig derives the effective wazero configuration from the base config.
func (cfg *Options) runtimeConfig() (wazero.RuntimeConfig, error) {
	rc := cfg.RuntimeConfig
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.CompilationCacheDir != "" {
		cc, err := wazero.NewCompilationCacheWithDir(cfg.CompilationCacheDir)
		if err != nil {
			return nil, fmt.Errorf("compilation cache %s: %w", cfg.CompilationCacheDir, err)
		}
		rc = rc.WithCompilationCache(cc)
	}
	return rc, nil
}
