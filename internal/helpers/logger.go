package helpers

import (
	"log/slog"
	"os"
)

// SetupLogger returns the handler used by a jitscript component and a logger for it. A nil
// handler is replaced by a stderr text handler grouped under component. A non-empty
// subgroup nests the logger's attributes one level deeper, the handler itself is returned
// without it so callers can derive further loggers.
func SetupLogger(handler slog.Handler, component, subgroup string) (slog.Handler, *slog.Logger) {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, nil).WithGroup(component)
		slog.New(handler).Warn("No log handler configured, using the default")
	}
	if subgroup == "" {
		return handler, slog.New(handler)
	}
	return handler, slog.New(handler.WithGroup(subgroup))
}
