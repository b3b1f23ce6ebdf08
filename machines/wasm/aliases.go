package wasm

import (
	"github.com/robbyt/go-jitscript/machines/wasm/compiler"
)

type (
	Compiler       = compiler.Compiler
	Executable     = compiler.Executable
	CompilerOption = compiler.FunctionalOption
)

var (
	NewCompiler       = compiler.NewCompiler
	SplitImage        = compiler.SplitImage
	WithLogHandler    = compiler.WithLogHandler
	WithLogger        = compiler.WithLogger
	WithWASIEnabled   = compiler.WithWASIEnabled
	WithRuntimeConfig = compiler.WithRuntimeConfig
	WithHostFunctions = compiler.WithHostFunctions
	WithPluginLoading = compiler.WithPluginLoading

	WithCompilationCacheDir = compiler.WithCompilationCacheDir
	WithMemoryLimitPages    = compiler.WithMemoryLimitPages
)
