package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/robbyt/go-jitscript/machines/starlark/compiler/internal/convert"
	starlarkLib "go.starlark.net/starlark"
)

// Executable is a compiled Starlark script. When loaded it holds the initialised globals of
// the main program, with the library's exported globals merged in.
type Executable struct {
	*artifact.Table
	logger *slog.Logger

	mu      sync.RWMutex
	globals starlarkLib.StringDict
}

var _ script.Executable = (*Executable)(nil)

// Loaded reports whether the programs were initialised.
func (e *Executable) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.globals != nil
}

// Globals returns a copy of the initialised globals.
func (e *Executable) Globals() starlarkLib.StringDict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.globals)
}

// Call invokes a global function with Go arguments and converts the result back to Go. The
// call is cancelled when ctx is done.
func (e *Executable) Call(ctx context.Context, name string, args ...any) (any, error) {
	e.mu.RLock()
	fn, ok := e.globals[name]
	loaded := e.globals != nil
	e.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}
	callable, isCallable := fn.(starlarkLib.Callable)
	if !ok || !isCallable {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, name)
	}

	sArgs := make(starlarkLib.Tuple, 0, len(args))
	for i, arg := range args {
		v, err := convert.ToValue(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		sArgs = append(sArgs, v)
	}

	thread := newThread(name, e.logger)
	defer watchContext(ctx, thread)()

	result, err := starlarkLib.Call(thread, callable, sArgs, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return convert.FromValue(result)
}

// Close drops the initialised globals.
func (e *Executable) Close(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals = nil
	return nil
}

func newThread(name string, logger *slog.Logger) *starlarkLib.Thread {
	return &starlarkLib.Thread{
		Name: name,
		Print: func(_ *starlarkLib.Thread, msg string) {
			logger.Info("Script print", "thread", name, "message", msg)
		},
	}
}

// watchContext cancels thread when ctx is done. The returned func stops watching.
func watchContext(ctx context.Context, thread *starlarkLib.Thread) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return func() { close(done) }
}
