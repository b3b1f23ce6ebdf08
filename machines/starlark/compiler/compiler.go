package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/internal/helpers"
	"github.com/robbyt/go-jitscript/machines/types"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	runtimeModulePath = "go.starlark.net"
	runtimeFallback   = "devel"
)

// Compiler implements the script.Compiler interface for Starlark sources
type Compiler struct {
	globals     []string
	fileOptions *syntax.FileOptions
	maxSteps    uint64
	logHandler  slog.Handler
	logger      *slog.Logger
}

var _ script.Compiler = (*Compiler)(nil)

// NewCompiler creates a new Starlark-specific Compiler instance with the provided options.
// Global variables are used during script parsing to validate global name usage.
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
		handler, logger = helpers.SetupLogger(cfg.LogHandler, "starlark", "Compiler")
	}

	return &Compiler{
		globals:     cfg.Globals,
		fileOptions: cfg.FileOptions,
		maxSteps:    cfg.MaxInitSteps,
		logHandler:  handler,
		logger:      logger,
	}, nil
}

func (c *Compiler) String() string {
	return "starlark.Compiler"
}

// Machine implements script.Compiler
func (c *Compiler) Machine() types.Type {
	return types.Starlark
}

// RuntimeDependency implements script.Compiler. Serialised programs are only readable by the
// interpreter version that wrote them.
func (c *Compiler) RuntimeDependency() dependency.Entry {
	return dependency.ModuleLibrary("starlark", runtimeModulePath, runtimeFallback)
}

// NewContext implements source.ContextFactory
func (c *Compiler) NewContext(context.Context) (source.Context, error) {
	return &parseContext{opts: c.fileOptions, logger: c.logger.WithGroup("context")}, nil
}

// predeclared returns the standard modules plus the configured globals bound to None.
func (c *Compiler) predeclared() starlarkLib.StringDict {
	dict := standardModules()
	for _, name := range c.globals {
		if !dict.Has(name) {
			dict[name] = starlarkLib.None
		}
	}
	return dict
}

func (c *Compiler) asModule(m source.Module) (*Module, error) {
	if m == nil {
		return nil, ErrContentNil
	}
	if mod, ok := m.(*Module); ok {
		return mod, nil
	}
	return parse(c.fileOptions, m.Name(), m.Bytes())
}

// program resolves a fresh parse of m, so the Module's syntax tree is never mutated. Names
// that are not predeclared are offered to the resolver; resolved ones are recorded in hosts.
func (c *Compiler) program(
	m *Module,
	known func(string) bool,
	resolver script.SymbolResolver,
	hosts starlarkLib.StringDict,
) (*starlarkLib.Program, error) {
	f, err := c.fileOptions.Parse(m.name, m.code, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	isPredeclared := func(name string) bool {
		if known(name) || hosts.Has(name) {
			return true
		}
		if resolver == nil {
			return false
		}
		addr, ok := resolver.ResolveSymbol(name)
		if ok {
			hosts[name] = starlarkLib.MakeUint64(addr)
		}
		return ok
	}
	prog, err := starlarkLib.FileProgram(f, isPredeclared)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidationFailed, m.name, err)
	}
	return prog, nil
}

// Compile implements script.Compiler
func (c *Compiler) Compile(
	ctx context.Context,
	main, lib source.Module,
	opts script.CompileOptions,
) (script.Executable, error) {
	logger := c.logger.WithGroup("compile")

	mainMod, err := c.asModule(main)
	if err != nil {
		return nil, err
	}
	mainDecls, err := scan(mainMod)
	if err != nil {
		return nil, err
	}

	predeclared := c.predeclared()
	hosts := make(starlarkLib.StringDict)

	var (
		libMod   *Module
		libDecls *declarations
		libProg  *starlarkLib.Program
	)
	libGlobals := make(map[string]bool)
	if lib != nil {
		if libMod, err = c.asModule(lib); err != nil {
			return nil, err
		}
		d, err := scan(libMod)
		if err != nil {
			return nil, err
		}
		libDecls = &d
		for _, name := range d.globals() {
			libGlobals[name] = true
		}
		if libProg, err = c.program(libMod, predeclared.Has, opts.Resolver, hosts); err != nil {
			logger.Warn("Library compilation failed", "error", err)
			return nil, err
		}
	}

	known := func(name string) bool { return predeclared.Has(name) || libGlobals[name] }
	mainProg, err := c.program(mainMod, known, opts.Resolver, hosts)
	if err != nil {
		logger.Warn("Compilation failed", "error", err)
		return nil, err
	}

	meta, err := buildMetadata(mainDecls, libDecls)
	if err != nil {
		return nil, err
	}
	img, err := encodeImage(mainProg, libProg, slices.Sorted(maps.Keys(hosts)), slices.Sorted(maps.Keys(libGlobals)))
	if err != nil {
		return nil, err
	}

	exe := &Executable{
		Table:  artifact.NewTable(img, meta),
		logger: c.logger.WithGroup("exec"),
	}
	logger.Debug("Compiled script",
		"main", mainMod.Name(),
		"lines", countLines(mainMod.code),
		"hosts", len(hosts),
		"imageSize", len(img),
	)

	if !opts.LoadAfterCompile {
		return exe, nil
	}
	if err := c.load(ctx, exe, mainProg, libProg, predeclared, hosts, libGlobals); err != nil {
		logger.Warn("Load after compile failed", "error", err)
		return nil, err
	}
	return exe, nil
}

// Load implements script.Compiler. Host symbols recorded in the image are resolved again
// through opts.Resolver before the programs are initialised.
func (c *Compiler) Load(
	ctx context.Context,
	cached artifact.Backend,
	opts script.CompileOptions,
) (script.Executable, error) {
	img, mainProg, libProg, err := decodeImage(cached.Image())
	if err != nil {
		return nil, err
	}

	hosts := make(starlarkLib.StringDict, len(img.Hosts))
	var missing []string
	for _, name := range img.Hosts {
		var addr uint64
		ok := opts.Resolver != nil
		if ok {
			addr, ok = opts.Resolver.ResolveSymbol(name)
		}
		if !ok {
			missing = append(missing, name)
			continue
		}
		hosts[name] = starlarkLib.MakeUint64(addr)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unresolved symbols: %s", ErrValidationFailed, strings.Join(missing, ", "))
	}

	exe := &Executable{
		Table:  artifact.NewTable(cached.Image(), artifact.MetadataOf(cached)),
		logger: c.logger.WithGroup("exec"),
	}
	if !opts.LoadAfterCompile {
		return exe, nil
	}

	libGlobals := make(map[string]bool, len(img.LibGlobals))
	for _, name := range img.LibGlobals {
		libGlobals[name] = true
	}
	if err := c.load(ctx, exe, mainProg, libProg, c.predeclared(), hosts, libGlobals); err != nil {
		c.logger.Warn("Load of cached image failed", "error", err)
		return nil, err
	}
	return exe, nil
}

// load initialises the library, then the main program with the library's exported globals and
// the resolved host symbols predeclared. Every for-each kernel must be callable.
func (c *Compiler) load(
	ctx context.Context,
	exe *Executable,
	mainProg, libProg *starlarkLib.Program,
	predeclared, hosts starlarkLib.StringDict,
	libGlobals map[string]bool,
) error {
	env := maps.Clone(predeclared)
	maps.Copy(env, hosts)

	if libProg != nil {
		globals, err := c.initProgram(ctx, libProg, env)
		if err != nil {
			return err
		}
		for name, v := range globals {
			if libGlobals[name] {
				env[name] = v
			}
		}
	}

	globals, err := c.initProgram(ctx, mainProg, env)
	if err != nil {
		return err
	}
	for _, sym := range exe.ExportForEach() {
		if _, ok := globals[sym.Name].(starlarkLib.Callable); !ok {
			return fmt.Errorf("%w: %s", ErrNotCallable, sym.Name)
		}
	}

	exe.mu.Lock()
	exe.globals = globals
	exe.mu.Unlock()
	return nil
}

func (c *Compiler) initProgram(
	ctx context.Context,
	prog *starlarkLib.Program,
	predeclared starlarkLib.StringDict,
) (starlarkLib.StringDict, error) {
	thread := newThread(prog.Filename(), c.logger)
	if c.maxSteps > 0 {
		thread.SetMaxExecutionSteps(c.maxSteps)
	}
	defer watchContext(ctx, thread)()

	globals, err := prog.Init(thread, predeclared)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	globals.Freeze()
	return globals, nil
}
