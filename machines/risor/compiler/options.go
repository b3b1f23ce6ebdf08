package compiler

import (
	"errors"
	"log/slog"
	"os"
	"slices"
)

// Options configures the Risor Compiler.
type Options struct {
	LogHandler slog.Handler
	Logger     *slog.Logger

	// Globals are names a host binds at run time. Each is offered to the symbol resolver and
	// bound to nil when it does not resolve.
	Globals []string
}

// FunctionalOption mutates Options during NewCompiler.
type FunctionalOption func(*Options) error

// WithGlobals declares names that sources may read before a host binds them.
func WithGlobals(globals []string) FunctionalOption {
	return func(cfg *Options) error {
		for _, name := range globals {
			if name == "" {
				return errors.New("global name cannot be empty")
			}
		}
		cfg.Globals = slices.Clone(globals)
		return nil
	}
}

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

// ApplyDefaults sets the default values for Options
func ApplyDefaults(cfg *Options) {
	if cfg.LogHandler == nil && cfg.Logger == nil {
		cfg.LogHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if cfg.Globals == nil {
		cfg.Globals = []string{}
	}
}

// Validate checks if the configuration is valid
func Validate(cfg *Options) error {
	if cfg.LogHandler == nil && cfg.Logger == nil {
		return errors.New("either log handler or logger must be specified")
	}
	for _, name := range cfg.Globals {
		if isReserved(name) {
			return errors.New("global name is reserved: " + name)
		}
	}
	return nil
}
