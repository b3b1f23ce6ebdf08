package compiler

import (
	"maps"

	starlarkJSON "go.starlark.net/lib/json"
	starlarkMath "go.starlark.net/lib/math"
	starlarkTime "go.starlark.net/lib/time"
	starlarkLib "go.starlark.net/starlark"
)

// Module namespace constants used in both compilation and execution phases
const (
	namespaceJSON = "json"
	namespaceMath = "math"
	namespaceTime = "time"
)

// Annotation builtins. Calls at the top level of the main source are recorded as metadata;
// at run time they do nothing.
const (
	builtinPragma  = "pragma"
	builtinForEach = "export_foreach"
)

// standardModules returns a copy of the Starlark universe with additional modules and the
// annotation builtins.
func standardModules() starlarkLib.StringDict {
	universe := maps.Clone(starlarkLib.Universe)

	universe[namespaceJSON] = starlarkJSON.Module
	universe[namespaceMath] = starlarkMath.Module
	universe[namespaceTime] = starlarkTime.Module

	universe[builtinPragma] = starlarkLib.NewBuiltin(builtinPragma, pragmaBuiltin)
	universe[builtinForEach] = starlarkLib.NewBuiltin(builtinForEach, forEachBuiltin)
	return universe
}

func pragmaBuiltin(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var key, value string
	if err := starlarkLib.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &key, &value); err != nil {
		return nil, err
	}
	return starlarkLib.None, nil
}

func forEachBuiltin(
	_ *starlarkLib.Thread,
	b *starlarkLib.Builtin,
	args starlarkLib.Tuple,
	kwargs []starlarkLib.Tuple,
) (starlarkLib.Value, error) {
	var name string
	if err := starlarkLib.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	return starlarkLib.None, nil
}
