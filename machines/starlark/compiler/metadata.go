package compiler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"go.starlark.net/syntax"
)

const (
	moduleMain    uint8 = 0
	moduleLibrary uint8 = 1
)

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

// exported reports whether a global is visible to other modules. Names starting with an
// underscore are private, as with Starlark's load statement.
func exported(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func isObjectExpr(e syntax.Expr) bool {
	switch e.(type) {
	case *syntax.DictExpr, *syntax.ListExpr, *syntax.Comprehension:
		return true
	default:
		return false
	}
}

func stringArgs(call *syntax.CallExpr) ([]string, bool) {
	out := make([]string, 0, len(call.Args))
	for _, arg := range call.Args {
		lit, ok := arg.(*syntax.Literal)
		if !ok || lit.Token != syntax.STRING {
			return nil, false
		}
		s, ok := lit.Value.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// lineOffsets indexes the byte offset of every line start.
func lineOffsets(code []byte) []int {
	offsets := []int{0}
	for i, b := range code {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func offsetOf(offsets []int, pos syntax.Position, limit int) int {
	line := int(pos.Line) - 1
	if line < 0 {
		return 0
	}
	if line >= len(offsets) {
		return limit
	}
	return min(offsets[line]+max(int(pos.Col)-1, 0), limit)
}

// spanSize is the number of source bytes covered by n.
func spanSize(offsets []int, n syntax.Node, limit int) uint32 {
	start, end := n.Span()
	size := offsetOf(offsets, end, limit) - offsetOf(offsets, start, limit)
	return uint32(max(size, 0))
}

func annotation(call *syntax.CallExpr, want int) ([]string, error) {
	ident := call.Fn.(*syntax.Ident)
	args, ok := stringArgs(call)
	if !ok || len(args) != want {
		pos, _ := call.Span()
		return nil, fmt.Errorf("%w: %s: %s expects %d string literal arguments",
			ErrInvalidAnnotation, pos, ident.Name, want)
	}
	return args, nil
}

// scan collects the declarations of a source. Only the first definition of a name counts.
func scan(m *Module) (declarations, error) {
	var d declarations
	offsets := lineOffsets(m.code)
	limit := len(m.code)
	seen := make(map[string]bool)

	for _, stmt := range m.file.Stmts {
		switch s := stmt.(type) {
		case *syntax.DefStmt:
			if seen[s.Name.Name] {
				continue
			}
			seen[s.Name.Name] = true
			d.funcs = append(d.funcs, funcDecl{name: s.Name.Name, size: spanSize(offsets, s, limit)})

		case *syntax.AssignStmt:
			ident, ok := s.LHS.(*syntax.Ident)
			if !ok || s.Op != syntax.EQ || seen[ident.Name] {
				continue
			}
			seen[ident.Name] = true
			d.vars = append(d.vars, varDecl{name: ident.Name, object: isObjectExpr(s.RHS)})

		case *syntax.ExprStmt:
			call, ok := s.X.(*syntax.CallExpr)
			if !ok {
				continue
			}
			fn, ok := call.Fn.(*syntax.Ident)
			if !ok {
				continue
			}
			switch fn.Name {
			case builtinPragma:
				args, err := annotation(call, 2)
				if err != nil {
					return declarations{}, err
				}
				d.pragmas = append(d.pragmas, artifact.Pragma{Key: args[0], Value: args[1]})
			case builtinForEach:
				args, err := annotation(call, 1)
				if err != nil {
					return declarations{}, err
				}
				d.forEach = append(d.forEach, args[0])
			}
		}
	}
	return d, nil
}

// globals lists the exported names a source binds.
func (d declarations) globals() []string {
	var names []string
	for _, f := range d.funcs {
		if exported(f.name) {
			names = append(names, f.name)
		}
	}
	for _, v := range d.vars {
		if exported(v.name) {
			names = append(names, v.name)
		}
	}
	return names
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

// countLines is used for logging only.
func countLines(code []byte) int {
	return bytes.Count(code, []byte{'\n'}) + 1
}
