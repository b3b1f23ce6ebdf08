package starlark

import (
	"github.com/robbyt/go-jitscript/machines/starlark/compiler"
)

type (
	Compiler       = compiler.Compiler
	Executable     = compiler.Executable
	CompilerOption = compiler.FunctionalOption
)

var (
	NewCompiler      = compiler.NewCompiler
	DecodeImage      = compiler.DecodeImage
	WithGlobals      = compiler.WithGlobals
	WithLogHandler   = compiler.WithLogHandler
	WithLogger       = compiler.WithLogger
	WithFileOptions  = compiler.WithFileOptions
	WithMaxInitSteps = compiler.WithMaxInitSteps
)
