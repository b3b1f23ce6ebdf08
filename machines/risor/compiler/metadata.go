package compiler

import (
	"fmt"
	"strings"

	"github.com/risor-io/risor/ast"

	"github.com/robbyt/go-jitscript/execution/artifact"
)

const (
	moduleMain    uint8 = 0
	moduleLibrary uint8 = 1
)

// Annotation functions. Calls at the top level of the main source are recorded as metadata;
// at run time they do nothing.
const (
	builtinPragma  = "pragma"
	builtinForEach = "export_foreach"
)

// prelude declares the annotation functions ahead of every program.
const prelude = "func pragma(key, value) {}\nfunc export_foreach(name) {}\n"

// argPrefix names the globals that carry call arguments.
const argPrefix = "jit_arg"

func isReserved(name string) bool {
	return name == builtinPragma || name == builtinForEach || strings.HasPrefix(name, argPrefix)
}

type varDecl struct {
	name   string
	object bool
}

type funcDecl struct {
	name string
	size uint32
}

// declarations are the top-level definitions and annotations of one source, in source order.
type declarations struct {
	funcs   []funcDecl
	vars    []varDecl
	pragmas []artifact.Pragma
	forEach []string
}

// exported reports whether a global appears in the metadata. Names starting with an
// underscore are private.
func exported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func isObjectExpr(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Map, *ast.List:
		return true
	default:
		return false
	}
}

func stringArgs(call *ast.Call) ([]string, bool) {
	out := make([]string, 0, len(call.Arguments()))
	for _, arg := range call.Arguments() {
		lit, ok := arg.(*ast.String)
		if !ok {
			return nil, false
		}
		out = append(out, lit.Value())
	}
	return out, true
}

func annotation(call *ast.Call, name string, want int) ([]string, error) {
	args, ok := stringArgs(call)
	if !ok || len(args) != want {
		return nil, fmt.Errorf("%w: %s expects %d string literal arguments",
			ErrInvalidAnnotation, name, want)
	}
	return args, nil
}

// scan collects the declarations of a source. Only the first definition of a name counts.
func scan(m *Module) (declarations, error) {
	var d declarations
	seen := make(map[string]bool)
	addFunc := func(name string, n ast.Node) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		d.funcs = append(d.funcs, funcDecl{name: name, size: uint32(len(n.String()))})
	}
	addVar := func(name string, value ast.Expression) {
		if fn, ok := value.(*ast.Func); ok {
			addFunc(name, fn)
			return
		}
		if seen[name] {
			return
		}
		seen[name] = true
		d.vars = append(d.vars, varDecl{name: name, object: isObjectExpr(value)})
	}

	for _, stmt := range m.prog.Statements() {
		switch s := any(stmt).(type) {
		case *ast.Func:
			if ident := s.Name(); ident != nil {
				addFunc(ident.Literal(), s)
			}

		case *ast.Var:
			addVar(s.Value())

		case *ast.Const:
			addVar(s.Value())

		case *ast.Call:
			fn, ok := s.Function().(*ast.Ident)
			if !ok {
				continue
			}
			switch name := fn.Literal(); name {
			case builtinPragma:
				args, err := annotation(s, name, 2)
				if err != nil {
					return declarations{}, fmt.Errorf("%s: %w", m.name, err)
				}
				d.pragmas = append(d.pragmas, artifact.Pragma{Key: args[0], Value: args[1]})
			case builtinForEach:
				args, err := annotation(s, name, 1)
				if err != nil {
					return declarations{}, fmt.Errorf("%s: %w", m.name, err)
				}
				d.forEach = append(d.forEach, args[0])
			}
		}
	}
	for name := range seen {
		if isReserved(name) {
			return declarations{}, fmt.Errorf("%w: %s: %s is reserved", ErrValidationFailed, m.name, name)
		}
	}
	return d, nil
}

func symbols(d declarations, module uint8) (funcs, vars []artifact.Symbol, slots []uint32, infos []artifact.FuncInfo) {
	for i, f := range d.funcs {
		addr := artifact.Address(module, artifact.KindFunc, uint32(i))
		infos = append(infos, artifact.FuncInfo{Name: f.name, Addr: addr, Size: f.size})
		if exported(f.name) {
			funcs = append(funcs, artifact.Symbol{Name: f.name, Addr: addr})
		}
	}
	for i, v := range d.vars {
		if !exported(v.name) {
			continue
		}
		if v.object {
			slots = append(slots, uint32(len(vars)))
		}
		vars = append(vars, artifact.Symbol{Name: v.name, Addr: artifact.Address(module, artifact.KindGlobal, uint32(i))})
	}
	return funcs, vars, slots, infos
}

// buildMetadata describes the main source and the optional library. Annotations are only read
// from the main source.
func buildMetadata(main declarations, lib *declarations) (artifact.Metadata, error) {
	var meta artifact.Metadata
	meta.ExportFuncs, meta.ExportVars, meta.ObjectSlots, meta.Funcs = symbols(main, moduleMain)
	meta.Pragmas = main.pragmas

	funcs := make(map[string]uint64, len(meta.ExportFuncs))
	for _, s := range meta.ExportFuncs {
		funcs[s.Name] = s.Addr
	}
	for _, name := range main.forEach {
		addr, ok := funcs[name]
		if !ok {
			return artifact.Metadata{}, fmt.Errorf(
				"%w: kernel %q is not an exported function", ErrInvalidAnnotation, name)
		}
		meta.ExportForEach = append(meta.ExportForEach, artifact.Symbol{Name: name, Addr: addr})
	}

	if lib == nil {
		return meta, nil
	}
	libFuncs, libVars, _, libInfos := symbols(*lib, moduleLibrary)
	meta.Funcs = append(meta.Funcs, libInfos...)
	meta.Symbols = append(libFuncs, libVars...)
	return meta, nil
}
