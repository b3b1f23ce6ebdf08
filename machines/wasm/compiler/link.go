package compiler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robbyt/go-jitscript/execution/script"
	"github.com/tetratelabs/wabin/wasm"
)

// hostImport is a function import satisfied by the symbol resolver.
type hostImport struct {
	module string
	name   string
	addr   uint64
	typ    *wasm.FunctionType
}

func sameSignature(a, b *wasm.FunctionType) bool {
	return slices.Equal(a.Params, b.Params) && slices.Equal(a.Results, b.Results)
}

func findExport(m *wasm.Module, kind wasm.ExternType, name string) (*wasm.Export, bool) {
	for _, exp := range m.ExportSection {
		if exp.Type == kind && exp.Name == name {
			return exp, true
		}
	}
	return nil, false
}

// linkFromLibrary checks that imp is exported by lib with a compatible type.
func linkFromLibrary(m *wasm.Module, imp *wasm.Import, lib *Module) error {
	exp, ok := findExport(lib.decoded, imp.Type, imp.Name)
	if !ok {
		return fmt.Errorf("%s.%s: not exported by library", imp.Module, imp.Name)
	}
	switch imp.Type {
	case wasm.ExternTypeFunc:
		if int(imp.DescFunc) >= len(m.TypeSection) {
			return fmt.Errorf("%s.%s: invalid type index", imp.Module, imp.Name)
		}
		have, found := funcType(lib.decoded, exp.Index)
		if !found || !sameSignature(m.TypeSection[imp.DescFunc], have) {
			return fmt.Errorf("%s.%s: signature mismatch", imp.Module, imp.Name)
		}
	case wasm.ExternTypeGlobal:
		have, found := globalType(lib.decoded, exp.Index)
		if imp.DescGlobal == nil || !found || *imp.DescGlobal != *have {
			return fmt.Errorf("%s.%s: global type mismatch", imp.Module, imp.Name)
		}
	}
	return nil
}

// linkImports resolves every import of m. Imports naming the library's module are matched
// against its exports, any other function import is passed to the resolver.
func linkImports(m *Module, lib *Module, resolver script.SymbolResolver) ([]hostImport, []error) {
	var hosts []hostImport
	var errs []error
	for _, imp := range m.decoded.ImportSection {
		if lib != nil && imp.Module == lib.LinkName() {
			if err := linkFromLibrary(m.decoded, imp, lib); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if imp.Type != wasm.ExternTypeFunc {
			errs = append(errs, fmt.Errorf("%s.%s: unresolved %s import",
				imp.Module, imp.Name, wasm.ExternTypeName(imp.Type)))
			continue
		}
		if resolver == nil {
			errs = append(errs, fmt.Errorf("%s.%s: unresolved symbol", imp.Module, imp.Name))
			continue
		}
		addr, ok := resolver.ResolveSymbol(imp.Name)
		if !ok {
			errs = append(errs, fmt.Errorf("%s.%s: unresolved symbol", imp.Module, imp.Name))
			continue
		}
		if int(imp.DescFunc) >= len(m.decoded.TypeSection) {
			errs = append(errs, fmt.Errorf("%s.%s: invalid type index", imp.Module, imp.Name))
			continue
		}
		hosts = append(hosts, hostImport{
			module: imp.Module,
			name:   imp.Name,
			addr:   addr,
			typ:    m.decoded.TypeSection[imp.DescFunc],
		})
	}
	return hosts, errs
}

// link resolves the imports of the main module and of the library.
func link(main, lib *Module, resolver script.SymbolResolver) ([]hostImport, error) {
	hosts, errs := linkImports(main, lib, resolver)
	if lib != nil {
		libHosts, libErrs := linkImports(lib, nil, resolver)
		hosts = append(hosts, libHosts...)
		errs = append(errs, libErrs...)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrLinkFailed, errors.Join(errs...))
	}
	return hosts, nil
}
