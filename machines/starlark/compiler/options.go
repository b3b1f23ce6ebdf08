package compiler

import (
	"errors"
	"log/slog"
	"os"

	"go.starlark.net/syntax"
)

// Options configures the Starlark Compiler.
type Options struct {
	LogHandler slog.Handler
	Logger     *slog.Logger

	// Globals are predeclared as None so sources may reference names a host binds later.
	Globals []string
	// FileOptions selects the Starlark dialect.
	FileOptions *syntax.FileOptions
	// MaxInitSteps bounds the top-level execution of each program during load-after-compile.
	// Zero means unbounded.
	MaxInitSteps uint64
}

// FunctionalOption mutates Options during NewCompiler.
type FunctionalOption func(*Options) error

// WithGlobals predeclares names that sources may read before a host binds them.
func WithGlobals(globals []string) FunctionalOption {
	return func(cfg *Options) error {
		cfg.Globals = globals
		return nil
	}
}

// WithLogHandler sets the slog handler used for compiler logs and script print output. It
// replaces any logger set earlier.
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

// WithFileOptions sets the dialect options used to parse sources.
func WithFileOptions(opts *syntax.FileOptions) FunctionalOption {
	return func(cfg *Options) error {
		if opts == nil {
			return errors.New("file options cannot be nil")
		}
		cfg.FileOptions = opts
		return nil
	}
}

// WithMaxInitSteps caps the Starlark steps spent running a program's top level when it is
// loaded after compile. A script that exceeds it fails to load.
func WithMaxInitSteps(steps uint64) FunctionalOption {
	return func(cfg *Options) error {
		if steps == 0 {
			return errors.New("max init steps must be positive")
		}
		cfg.MaxInitSteps = steps
		return nil
	}
}

// ApplyDefaults fills in a stderr text handler, no extra globals and a dialect with set,
// while and global reassignment enabled.
func ApplyDefaults(cfg *Options) {
	if cfg.LogHandler == nil && cfg.Logger == nil {
		cfg.LogHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if cfg.Globals == nil {
		cfg.Globals = []string{}
	}
	if cfg.FileOptions == nil {
		cfg.FileOptions = &syntax.FileOptions{Set: true, While: true, GlobalReassign: true}
	}
}

// Validate reports the first missing required setting.
func Validate(cfg *Options) error {
	switch {
	case cfg.LogHandler == nil && cfg.Logger == nil:
		return errors.New("either log handler or logger must be specified")
	case cfg.FileOptions == nil:
		return errors.New("file options cannot be nil")
	}
	return nil
}
