// Package starlark provides the Starlark compiler backend for scripts. The main source may
// use the exported globals of the support library directly.
package starlark

import (
	"log/slog"

	"github.com/robbyt/go-jitscript/execution/script"
)

// NewScript creates a script compiled by a new Starlark compiler. When handler is not nil, the
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
