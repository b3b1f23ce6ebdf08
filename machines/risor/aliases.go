package risor

import (
	"github.com/robbyt/go-jitscript/machines/risor/compiler"
)

type (
	Compiler       = compiler.Compiler
	Executable     = compiler.Executable
	CompilerOption = compiler.FunctionalOption
)

var (
	NewCompiler    = compiler.NewCompiler
	WithGlobals    = compiler.WithGlobals
	WithLogHandler = compiler.WithLogHandler
	WithLogger     = compiler.WithLogger
)
