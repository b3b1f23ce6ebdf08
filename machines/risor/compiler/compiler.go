package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/internal/helpers"
	"github.com/robbyt/go-jitscript/machines/types"
)

const (
	runtimeModulePath = "github.com/risor-io/risor"
	runtimeFallback   = "devel"
)

// Compiler implements the script.Compiler interface for Risor sources. The library is linked
// by evaluating it ahead of the main source, so main sees every library global.
type Compiler struct {
	globals    []string
	logHandler slog.Handler
	logger     *slog.Logger
}

var _ script.Compiler = (*Compiler)(nil)

// NewCompiler creates a new Risor-specific Compiler instance with the provided options.
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

	var handler slog.Handler
	var logger *slog.Logger
	if cfg.Logger != nil {
		logger = cfg.Logger
		handler = logger.Handler()
	} else {
		handler, logger = helpers.SetupLogger(cfg.LogHandler, "risor", "Compiler")
	}

	return &Compiler{
		globals:    cfg.Globals,
		logHandler: handler,
		logger:     logger,
	}, nil
}

func (c *Compiler) String() string {
	return "risor.Compiler"
}

// Machine implements script.Compiler
func (c *Compiler) Machine() types.Type {
	return types.Risor
}

// RuntimeDependency implements script.Compiler. Cached sources are compiled again on load,
// so an interpreter upgrade must invalidate them.
func (c *Compiler) RuntimeDependency() dependency.Entry {
	return dependency.ModuleLibrary("risor", runtimeModulePath, runtimeFallback)
}

// NewContext implements source.ContextFactory
func (c *Compiler) NewContext(context.Context) (source.Context, error) {
	return &parseContext{logger: c.logger.WithGroup("context")}, nil
}

func (c *Compiler) asModule(ctx context.Context, m source.Module) (*Module, error) {
	if m == nil {
		return nil, ErrContentNil
	}
	if mod, ok := m.(*Module); ok {
		return mod, nil
	}
	return parse(ctx, m.Name(), m.Bytes())
}

// link joins the prelude, the library and the main source into one program.
func link(main, lib []byte) string {
	var b strings.Builder
	b.WriteString(prelude)
	if len(lib) > 0 {
		b.Write(lib)
		b.WriteByte('\n')
	}
	b.Write(main)
	b.WriteByte('\n')
	return b.String()
}

// bindings offers every configured global to the resolver. Unresolved names are bound to nil.
// The sorted resolved names are returned as hosts.
func (c *Compiler) bindings(resolver script.SymbolResolver) (map[string]any, []string) {
	values := make(map[string]any, len(c.globals))
	var hosts []string
	for _, name := range c.globals {
		values[name] = nil
		if resolver == nil {
			continue
		}
		if addr, ok := resolver.ResolveSymbol(name); ok {
			values[name] = int64(addr)
			hosts = append(hosts, name)
		}
	}
	slices.Sort(hosts)
	return values, hosts
}

func (c *Compiler) newExecutable(table *artifact.Table, program string, values map[string]any) *Executable {
	return &Executable{
		Table:    table,
		logger:   c.logger.WithGroup("exec"),
		program:  program,
		bindings: values,
	}
}

// Compile implements script.Compiler
func (c *Compiler) Compile(
	ctx context.Context,
	main, lib source.Module,
	opts script.CompileOptions,
) (script.Executable, error) {
	logger := c.logger.WithGroup("compile")

	mainMod, err := c.asModule(ctx, main)
	if err != nil {
		return nil, err
	}
	mainDecls, err := scan(mainMod)
	if err != nil {
		return nil, err
	}

	var (
		libMod   *Module
		libDecls *declarations
		libCode  []byte
	)
	if lib != nil {
		if libMod, err = c.asModule(ctx, lib); err != nil {
			return nil, err
		}
		d, err := scan(libMod)
		if err != nil {
			return nil, err
		}
		libDecls, libCode = &d, libMod.code
	}

	meta, err := buildMetadata(mainDecls, libDecls)
	if err != nil {
		return nil, err
	}

	values, hosts := c.bindings(opts.Resolver)
	exe := c.newExecutable(nil, link(mainMod.code, libCode), values)
	code, err := exe.compile(ctx, "")
	if err != nil {
		logger.Warn("Compilation failed", "main", mainMod.Name(), "error", err)
		return nil, err
	}

	img, err := encodeImage(mainMod, libMod, hosts)
	if err != nil {
		return nil, err
	}
	exe.Table = artifact.NewTable(img, meta)
	logger.Debug("Compiled script",
		"main", mainMod.Name(),
		"instructions", code.InstructionCount(),
		"hosts", len(hosts),
		"imageSize", len(img),
	)

	if !opts.LoadAfterCompile {
		return exe, nil
	}
	if err := exe.load(ctx, code); err != nil {
		logger.Warn("Load after compile failed", "error", err)
		return nil, err
	}
	return exe, nil
}

// Load implements script.Compiler. The sources in the image are compiled again and every
// host symbol recorded at compile time must resolve through opts.Resolver.
func (c *Compiler) Load(
	ctx context.Context,
	cached artifact.Backend,
	opts script.CompileOptions,
) (script.Executable, error) {
	img, err := decodeImage(cached.Image())
	if err != nil {
		return nil, err
	}

	values, hosts := c.bindings(opts.Resolver)
	var missing []string
	for _, name := range img.Hosts {
		if !slices.Contains(hosts, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unresolved symbols: %s", ErrValidationFailed, strings.Join(missing, ", "))
	}

	exe := c.newExecutable(
		artifact.NewTable(cached.Image(), artifact.MetadataOf(cached)),
		link(img.Main, img.Lib),
		values,
	)
	code, err := exe.compile(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", img.MainName, err)
	}
	if !opts.LoadAfterCompile {
		return exe, nil
	}
	if err := exe.load(ctx, code); err != nil {
		c.logger.Warn("Load of cached image failed", "error", err)
		return nil, err
	}
	return exe, nil
}
