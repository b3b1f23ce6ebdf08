package script

import (
	"errors"
	"log/slog"
	"os"
	"strconv"

	"github.com/robbyt/go-jitscript/execution/cache"
	"github.com/robbyt/go-jitscript/execution/debugger"
	"github.com/robbyt/go-jitscript/execution/dependency"
)

// Option configures a Script.
type Option func(*config) error

type config struct {
	handler      slog.Handler
	cacheOff     func() bool
	registrar    debugger.Registrar
	serializer   cache.Serializer
	driver       dependency.Entry
	extraDeps    []dependency.Entry
	compileFlags CompileOptions
}

func defaultConfig() *config {
	return &config{
		handler:      slog.Default().Handler(),
		cacheOff:     func() bool { return false },
		registrar:    debugger.Default,
		driver:       dependency.DriverLibrary(),
		compileFlags: DefaultCompileOptions(),
	}
}

func (c *config) validate() error {
	if c.handler == nil {
		return errors.New("log handler cannot be nil")
	}
	if c.cacheOff == nil {
		return errors.New("cache override cannot be nil")
	}
	if c.registrar == nil {
		return errors.New("debugger registrar cannot be nil")
	}
	if c.driver.Name == "" {
		return errors.New("driver dependency must be named")
	}
	return nil
}

// WithLogHandler sets the slog handler the script logs to.
func WithLogHandler(handler slog.Handler) Option {
	return func(c *config) error {
		if handler == nil {
			return errors.New("log handler cannot be nil")
		}
		c.handler = handler
		return nil
	}
}

// WithCacheDisabled injects the operator override that disables every cache load and store.
// The function is consulted once per load decision.
func WithCacheDisabled(disabled func() bool) Option {
	return func(c *config) error {
		if disabled == nil {
			return errors.New("cache override cannot be nil")
		}
		c.cacheOff = disabled
		return nil
	}
}

// EnvCacheDisabled reads a boolean environment variable. Unset or unparsable values keep the
// cache enabled.
func EnvCacheDisabled(name string) func() bool {
	return func() bool {
		v, ok := os.LookupEnv(name)
		if !ok {
			return false
		}
		off, err := strconv.ParseBool(v)
		return err == nil && off
	}
}

// WithDebugRegistrar replaces the process-wide debugger registry.
func WithDebugRegistrar(r debugger.Registrar) Option {
	return func(c *config) error {
		if r == nil {
			return errors.New("debugger registrar cannot be nil")
		}
		c.registrar = r
		return nil
	}
}

// WithCacheSerializer replaces the default CBOR serializer.
func WithCacheSerializer(s cache.Serializer) Option {
	return func(c *config) error {
		if s == nil {
			return errors.New("cache serializer cannot be nil")
		}
		c.serializer = s
		return nil
	}
}

// WithDriverDependency overrides the fixed driver dependency.
func WithDriverDependency(e dependency.Entry) Option {
	return func(c *config) error {
		if e.Name == "" {
			return errors.New("driver dependency must be named")
		}
		c.driver = e
		return nil
	}
}

// WithExtraDependencies adds resources every cache entry of this script depends on, such as
// configuration files read by a symbol resolver.
func WithExtraDependencies(entries ...dependency.Entry) Option {
	return func(c *config) error {
		c.extraDeps = append(c.extraDeps, entries...)
		return nil
	}
}

// WithRelocModel sets the relocation model used by PrepareExecutable.
func WithRelocModel(m RelocModel) Option {
	return func(c *config) error {
		if m < RelocDefault || m > RelocDynamicNoPIC {
			return errors.New("unknown relocation model")
		}
		c.compileFlags.RelocModel = m
		return nil
	}
}
