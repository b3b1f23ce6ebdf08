package options

import (
	"log/slog"
	"os"

	"github.com/robbyt/go-jitscript/machines/types"
)

// DefaultCacheEnv disables the cache of scripts built by this package when set to a true
// value.
const DefaultCacheEnv = "JITSCRIPT_NOCACHE"

// DefaultConfig returns a Config for machineType that logs as text to stdout and honours
// DefaultCacheEnv. No sources are set.
func DefaultConfig(machineType types.Type) *Config {
	return &Config{
		machineType: machineType,
		handler:     DefaultHandler(),
		cacheEnv:    DefaultCacheEnv,
	}
}

// DefaultHandler is the log handler used when none is given.
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
}

// WithDefaults restores the log handler if an option cleared it.
func WithDefaults() Option {
	return func(c *Config) error {
		if c.GetHandler() == nil {
			c.SetHandler(DefaultHandler())
		}
		return nil
	}
}
