package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorObject "github.com/risor-io/risor/object"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/script"
)

// Executable is a compiled Risor script. Risor keeps no state between evaluations, so every
// call runs the linked program's top level in a fresh VM before invoking the function.
type Executable struct {
	*artifact.Table
	logger *slog.Logger

	// program is the prelude, library and main source joined in that order.
	program string
	// bindings holds a value, possibly nil, for every extra global the program was compiled with.
	bindings map[string]any

	mu    sync.Mutex
	code  *risorCompiler.Code
	calls map[string]*risorCompiler.Code
}

var _ script.Executable = (*Executable)(nil)

// Loaded reports whether the program was run once successfully.
func (e *Executable) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code != nil
}

func (e *Executable) globalNames(extra ...string) []string {
	names := risorLib.NewConfig().GlobalNames()
	for name := range e.bindings {
		names = append(names, name)
	}
	return append(names, extra...)
}

func (e *Executable) options(args map[string]any) []risorLib.Option {
	opts := make([]risorLib.Option, 0, len(e.bindings)+len(args))
	for name, v := range e.bindings {
		opts = append(opts, risorLib.WithGlobal(name, v))
	}
	for name, v := range args {
		opts = append(opts, risorLib.WithGlobal(name, v))
	}
	return opts
}

// compile builds code for the program followed by tail.
func (e *Executable) compile(ctx context.Context, tail string, extra ...string) (*risorCompiler.Code, error) {
	prog, err := parseProgram(ctx, "program", e.program+tail)
	if err != nil {
		return nil, err
	}
	code, err := risorCompiler.Compile(prog, risorCompiler.WithGlobalNames(e.globalNames(extra...)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}
	if code.InstructionCount() < 1 {
		return nil, ErrNoInstructions
	}
	return code, nil
}

// load runs the top level once so errors in it surface before the first call.
func (e *Executable) load(ctx context.Context, code *risorCompiler.Code) error {
	if _, err := risorLib.EvalCode(ctx, code, e.options(nil)...); err != nil {
		return fmt.Errorf("%w: %w", ErrExecCreationFailed, err)
	}
	e.mu.Lock()
	e.code = code
	e.calls = make(map[string]*risorCompiler.Code)
	e.mu.Unlock()
	return nil
}

// callable reports whether name is a top-level function of the main source or the library.
func (e *Executable) callable(name string) bool {
	for _, f := range e.Funcs() {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Call invokes a top-level function with Go arguments and converts the result back to Go.
// The evaluation stops when ctx is done.
func (e *Executable) Call(ctx context.Context, name string, args ...any) (any, error) {
	if !e.callable(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, name)
	}

	argNames := make([]string, len(args))
	argValues := make(map[string]any, len(args))
	for i, arg := range args {
		argNames[i] = argPrefix + strconv.Itoa(i)
		argValues[argNames[i]] = arg
	}
	key := name + "/" + strconv.Itoa(len(args))

	e.mu.Lock()
	if e.code == nil {
		e.mu.Unlock()
		return nil, ErrNotLoaded
	}
	code, ok := e.calls[key]
	e.mu.Unlock()

	if !ok {
		tail := "\n" + name + "(" + strings.Join(argNames, ", ") + ")\n"
		var err error
		if code, err = e.compile(ctx, tail, argNames...); err != nil {
			return nil, err
		}
		e.logger.Debug("Compiled call", "name", name, "args", len(args))
		e.mu.Lock()
		if e.calls != nil {
			e.calls[key] = code
		}
		e.mu.Unlock()
	}

	result, err := risorLib.EvalCode(ctx, code, e.options(argValues)...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return fromObject(name, result)
}

func fromObject(name string, obj risorObject.Object) (any, error) {
	if obj == nil {
		return nil, nil
	}
	switch obj.Type() {
	case "error":
		return nil, fmt.Errorf("call %s: %s", name, obj.Inspect())
	case "function", "builtin":
		return nil, fmt.Errorf("call %s: function object returned: %s", name, obj.Inspect())
	}
	return obj.Interface(), nil
}

// Close drops the compiled code.
func (e *Executable) Close(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.code, e.calls = nil, nil
	return nil
}
