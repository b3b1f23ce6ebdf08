// Package risor provides the Risor compiler backend for scripts. The support library is
// evaluated ahead of the main source, which may use any of its globals.
package risor

import (
	"log/slog"

	"github.com/robbyt/go-jitscript/execution/script"
)

// NewScript creates a script compiled by a new Risor compiler. When handler is not nil, the
// compiler and the script both log through it.
func NewScript(
	handler slog.Handler,
	compilerOpts []CompilerOption,
	scriptOpts ...script.Option,
) (*script.Script, error) {
	if handler != nil {
		compilerOpts = append([]CompilerOption{WithLogHandler(handler)}, compilerOpts...)
		scriptOpts = append([]script.Option{script.WithLogHandler(handler)}, scriptOpts...)
	}
	c, err := NewCompiler(compilerOpts...)
	if err != nil {
		return nil, err
	}
	return script.New(c, scriptOpts...)
}
