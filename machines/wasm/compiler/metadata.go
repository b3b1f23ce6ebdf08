package compiler

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/tetratelabs/wabin/wasm"
)

const (
	// PragmaSection holds "key=value" lines.
	PragmaSection = "jit.pragma"

	// ForEachSection lists exported functions that are for-each kernels, one per line.
	ForEachSection = "jit.foreach"

	// LibrarySection embeds the support library in the code image.
	LibrarySection = "jit.library"

	// LibraryNameSection records the module name main imports the library by.
	LibraryNameSection = "jit.library.name"
)

const (
	moduleMain    uint8 = 0
	moduleLibrary uint8 = 1
)

func importCount(m *wasm.Module, kind wasm.ExternType) uint32 {
	var n uint32
	for _, imp := range m.ImportSection {
		if imp.Type == kind {
			n++
		}
	}
	return n
}

// funcType returns the signature of the function at idx in the function index space.
func funcType(m *wasm.Module, idx wasm.Index) (*wasm.FunctionType, bool) {
	var typeIdx wasm.Index
	imported := importCount(m, wasm.ExternTypeFunc)
	if idx < imported {
		var n wasm.Index
		for _, imp := range m.ImportSection {
			if imp.Type != wasm.ExternTypeFunc {
				continue
			}
			if n == idx {
				typeIdx = imp.DescFunc
				break
			}
			n++
		}
	} else {
		local := idx - imported
		if int(local) >= len(m.FunctionSection) {
			return nil, false
		}
		typeIdx = m.FunctionSection[local]
	}
	if int(typeIdx) >= len(m.TypeSection) {
		return nil, false
	}
	return m.TypeSection[typeIdx], true
}

// globalType returns the type of the global at idx in the global index space.
func globalType(m *wasm.Module, idx wasm.Index) (*wasm.GlobalType, bool) {
	var n wasm.Index
	for _, imp := range m.ImportSection {
		if imp.Type != wasm.ExternTypeGlobal {
			continue
		}
		if n == idx {
			return imp.DescGlobal, imp.DescGlobal != nil
		}
		n++
	}
	local := idx - n
	if int(local) >= len(m.GlobalSection) {
		return nil, false
	}
	return m.GlobalSection[local].Type, true
}

func customSection(m *wasm.Module, name string) []byte {
	var data []byte
	for _, cs := range m.CustomSections {
		if cs.Name == name {
			data = append(data, cs.Data...)
			data = append(data, '\n')
		}
	}
	return data
}

// annotationLines returns the trimmed, non-empty lines of a custom section. Lines starting
// with '#' are comments.
func annotationLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func parsePragmas(m *wasm.Module) ([]artifact.Pragma, error) {
	var pragmas []artifact.Pragma
	for _, line := range annotationLines(customSection(m, PragmaSection)) {
		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: %s: empty key in %q", ErrInvalidAnnotation, PragmaSection, line)
		}
		pragmas = append(pragmas, artifact.Pragma{Key: key, Value: strings.TrimSpace(value)})
	}
	return pragmas, nil
}

// functionNames maps function indices to names from the name section.
func functionNames(m *wasm.Module) map[wasm.Index]string {
	names := make(map[wasm.Index]string)
	if m.NameSection == nil {
		return names
	}
	for _, na := range m.NameSection.FunctionNames {
		if na.Name != "" {
			names[na.Index] = na.Name
		}
	}
	return names
}

// definedFuncs describes every named function defined, not imported, in m.
func definedFuncs(m *wasm.Module, module uint8) []artifact.FuncInfo {
	names := functionNames(m)
	imported := importCount(m, wasm.ExternTypeFunc)
	var funcs []artifact.FuncInfo
	for i, code := range m.CodeSection {
		idx := imported + wasm.Index(i)
		name, ok := names[idx]
		if !ok {
			continue
		}
		funcs = append(funcs, artifact.FuncInfo{
			Name: name,
			Addr: artifact.Address(module, artifact.KindFunc, idx),
			Size: uint32(len(code.Body)),
		})
	}
	return funcs
}

// exportSymbols splits the exports of m into function and global symbols. Object slots are the
// positions of externref globals within the returned vars.
func exportSymbols(m *wasm.Module, module uint8) (funcs, vars []artifact.Symbol, slots []uint32) {
	for _, exp := range m.ExportSection {
		switch exp.Type {
		case wasm.ExternTypeFunc:
			funcs = append(funcs, artifact.Symbol{
				Name: exp.Name,
				Addr: artifact.Address(module, artifact.KindFunc, exp.Index),
			})
		case wasm.ExternTypeGlobal:
			if gt, ok := globalType(m, exp.Index); ok && gt.ValType == wasm.ValueTypeExternref {
				slots = append(slots, uint32(len(vars)))
			}
			vars = append(vars, artifact.Symbol{
				Name: exp.Name,
				Addr: artifact.Address(module, artifact.KindGlobal, exp.Index),
			})
		}
	}
	return funcs, vars, slots
}

// buildMetadata describes the main module and the optional library. Only the main module's
// exports are script exports; the library contributes resolvable symbols and function infos.
func buildMetadata(main, lib *Module) (artifact.Metadata, error) {
	var meta artifact.Metadata
	m := main.decoded

	meta.ExportFuncs, meta.ExportVars, meta.ObjectSlots = exportSymbols(m, moduleMain)

	exported := make(map[string]uint64, len(meta.ExportFuncs))
	for _, s := range meta.ExportFuncs {
		exported[s.Name] = s.Addr
	}
	for _, name := range annotationLines(customSection(m, ForEachSection)) {
		addr, ok := exported[name]
		if !ok {
			return artifact.Metadata{}, fmt.Errorf(
				"%w: %s: kernel %q is not an exported function", ErrInvalidAnnotation, ForEachSection, name)
		}
		meta.ExportForEach = append(meta.ExportForEach, artifact.Symbol{Name: name, Addr: addr})
	}

	pragmas, err := parsePragmas(m)
	if err != nil {
		return artifact.Metadata{}, err
	}
	meta.Pragmas = pragmas

	meta.Funcs = definedFuncs(m, moduleMain)
	if lib == nil {
		return meta, nil
	}

	meta.Funcs = append(meta.Funcs, definedFuncs(lib.decoded, moduleLibrary)...)
	libFuncs, libVars, _ := exportSymbols(lib.decoded, moduleLibrary)
	meta.Symbols = append(libFuncs, libVars...)
	return meta, nil
}
