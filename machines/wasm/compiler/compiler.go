package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/internal/helpers"
	"github.com/robbyt/go-jitscript/machines/types"
	"github.com/robbyt/go-jitscript/machines/wasm/adapters"
	"github.com/robbyt/go-jitscript/machines/wasm/compiler/internal/load"
	"github.com/tetratelabs/wazero"
)

const (
	runtimeModulePath = "github.com/tetratelabs/wazero"
	runtimeFallback   = "v1.11.0"
)

type pluginLoader func(
	ctx context.Context,
	modules []load.Module,
	settings *load.Settings,
	hostFuncs []extismSDK.HostFunction,
) (adapters.CompiledPlugin, error)

// Compiler implements the script.Compiler interface for wasm modules
type Compiler struct {
	options    *Options
	runtime    wazero.RuntimeConfig
	logHandler slog.Handler
	logger     *slog.Logger
	loadPlugin pluginLoader
}

var _ script.Compiler = (*Compiler)(nil)

// NewCompiler creates a new wasm Compiler instance with the provided options.
func NewCompiler(opts ...FunctionalOption) (*Compiler, error) {
	cfg := &Options{}
	ApplyDefaults(cfg)

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	rc, err := cfg.runtimeConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	c := &Compiler{options: cfg, runtime: rc, loadPlugin: load.Plugin}
	if cfg.Logger != nil {
		c.logHandler = cfg.Logger.Handler()
		c.logger = cfg.Logger
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(cfg.LogHandler, "wasm", "Compiler")
	}
	return c, nil
}

func (c *Compiler) String() string {
	return "wasm.Compiler"
}

// Machine implements script.Compiler
func (c *Compiler) Machine() types.Type {
	return types.Wasm
}

// RuntimeDependency implements script.Compiler. Compiled images depend on the wazero runtime
// linked into this binary.
func (c *Compiler) RuntimeDependency() dependency.Entry {
	return dependency.ModuleLibrary("wazero", runtimeModulePath, runtimeFallback)
}

// NewContext implements source.ContextFactory. Each context owns a wazero runtime used to
// validate the modules parsed in it.
func (c *Compiler) NewContext(ctx context.Context) (source.Context, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, c.runtime)
	return &parseContext{
		runtime: rt,
		logger:  c.logger.WithGroup("context"),
	}, nil
}

// Compile implements script.Compiler
func (c *Compiler) Compile(
	ctx context.Context,
	main, lib source.Module,
	opts script.CompileOptions,
) (script.Executable, error) {
	logger := c.logger.WithGroup("compile")

	mainMod, err := asModule(main)
	if err != nil {
		return nil, err
	}
	var libMod *Module
	if lib != nil {
		if libMod, err = asModule(lib); err != nil {
			return nil, err
		}
	}

	hosts, err := link(mainMod, libMod, opts.Resolver)
	if err != nil {
		logger.Warn("Link failed", "main", mainMod.Name(), "error", err)
		return nil, err
	}

	meta, err := buildMetadata(mainMod, libMod)
	if err != nil {
		return nil, err
	}

	exe := &Executable{Table: artifact.NewTable(encodeImage(mainMod, libMod), meta)}
	if libMod != nil {
		exe.linkName = libMod.LinkName()
	}

	logger.Debug("Compiled module",
		"main", mainMod.Name(),
		"library", exe.linkName,
		"relocModel", opts.RelocModel.String(),
		"imageSize", len(exe.Image()),
		"exportFuncs", len(meta.ExportFuncs),
		"exportVars", len(meta.ExportVars),
	)

	if !opts.LoadAfterCompile || !c.options.LoadPlugins {
		return exe, nil
	}

	plugin, err := c.load(ctx, mainMod, libMod, hosts, meta)
	if err != nil {
		logger.Warn("Load after compile failed", "error", err)
		return nil, err
	}
	exe.plugin = plugin
	return exe, nil
}

// Load implements script.Compiler. The cached image is split back into main module and
// library, linked again against opts.Resolver and loaded as a plugin.
func (c *Compiler) Load(
	ctx context.Context,
	cached artifact.Backend,
	opts script.CompileOptions,
) (script.Executable, error) {
	logger := c.logger.WithGroup("load")

	mainMod, libMod, err := decodeImage(cached.Image())
	if err != nil {
		return nil, err
	}
	hosts, err := link(mainMod, libMod, opts.Resolver)
	if err != nil {
		logger.Warn("Link of cached image failed", "error", err)
		return nil, err
	}

	meta := artifact.MetadataOf(cached)
	exe := &Executable{Table: artifact.NewTable(cached.Image(), meta)}
	if libMod != nil {
		exe.linkName = libMod.LinkName()
	}
	if !opts.LoadAfterCompile || !c.options.LoadPlugins {
		return exe, nil
	}

	plugin, err := c.load(ctx, mainMod, libMod, hosts, meta)
	if err != nil {
		logger.Warn("Load of cached image failed", "error", err)
		return nil, err
	}
	exe.plugin = plugin
	logger.Debug("Loaded cached image", "library", exe.linkName, "hosts", len(hosts))
	return exe, nil
}

// load builds the plugin and verifies that every exported function and for-each kernel can be
// called, the same way an entry point is checked before execution.
func (c *Compiler) load(
	ctx context.Context,
	main, lib *Module,
	hosts []hostImport,
	meta artifact.Metadata,
) (adapters.CompiledPlugin, error) {
	hostFuncs, err := hostFunctions(hosts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	hostFuncs = append(slices.Clone(c.options.HostFunctions), hostFuncs...)

	var modules []load.Module
	if lib != nil {
		modules = append(modules, load.Module{Name: lib.LinkName(), Data: lib.code})
	}
	modules = append(modules, load.Module{Name: load.MainModuleName, Data: main.code})

	settings := &load.Settings{
		EnableWASI:    c.options.EnableWASI,
		RuntimeConfig: c.runtime,
	}
	plugin, err := c.loadPlugin(ctx, modules, settings, hostFuncs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	if plugin == nil {
		return nil, ErrExecCreationFailed
	}

	if err := c.verifyEntryPoints(ctx, plugin, meta); err != nil {
		if closeErr := plugin.Close(ctx); closeErr != nil {
			c.logger.Warn("Failed to close plugin after verification error", "error", closeErr)
		}
		return nil, err
	}
	return plugin, nil
}

func (c *Compiler) verifyEntryPoints(
	ctx context.Context,
	plugin adapters.CompiledPlugin,
	meta artifact.Metadata,
) error {
	names := artifact.Names(meta.ExportForEach)
	names = append(names, artifact.Names(meta.ExportFuncs)...)

	missing, err := adapters.MissingExports(ctx, plugin, names...)
	if err != nil {
		return fmt.Errorf("%w: failed to create test instance: %w", ErrExecCreationFailed, err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrEntryPointNotFound, strings.Join(missing, ", "))
	}
	return nil
}
