package script

import (
	"github.com/robbyt/go-jitscript/execution/artifact"
)

// backendQuery dispatches to the active backend. Before the script is prepared it records
// ErrorInvalidOperation and returns the zero value.
func backendQuery[T any](s *Script, op string, fn func(artifact.Backend) T) T {
	if s.State() == StateUnknown || s.active == nil {
		s.errCode = ErrorInvalidOperation
		s.logger.Warn("Query before the script is prepared", "op", op)
		var zero T
		return zero
	}
	return fn(s.active)
}

func addresses(symbols []artifact.Symbol) []uint64 {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]uint64, len(symbols))
	for i, sym := range symbols {
		out[i] = sym.Addr
	}
	return out
}

// Lookup resolves a symbol in the prepared image.
func (s *Script) Lookup(name string) (uint64, bool) {
	type result struct {
		addr uint64
		ok   bool
	}
	r := backendQuery(s, "Lookup", func(b artifact.Backend) result {
		addr, ok := b.Lookup(name)
		return result{addr, ok}
	})
	return r.addr, r.ok
}

// Image returns the prepared code image.
func (s *Script) Image() []byte {
	return backendQuery(s, "Image", artifact.Backend.Image)
}

// ExportVarCount returns the number of exported variables.
func (s *Script) ExportVarCount() int {
	return backendQuery(s, "ExportVarCount", func(b artifact.Backend) int { return len(b.ExportVars()) })
}

// ExportFuncCount returns the number of exported functions.
func (s *Script) ExportFuncCount() int {
	return backendQuery(s, "ExportFuncCount", func(b artifact.Backend) int { return len(b.ExportFuncs()) })
}

// ExportForEachCount returns the number of for-each kernels.
func (s *Script) ExportForEachCount() int {
	return backendQuery(s, "ExportForEachCount", func(b artifact.Backend) int { return len(b.ExportForEach()) })
}

// PragmaCount returns the number of pragmas recorded at compile time.
func (s *Script) PragmaCount() int {
	return backendQuery(s, "PragmaCount", func(b artifact.Backend) int { return len(b.Pragmas()) })
}

// FuncCount returns the number of functions in the module.
func (s *Script) FuncCount() int {
	return backendQuery(s, "FuncCount", func(b artifact.Backend) int { return len(b.Funcs()) })
}

// ObjectSlotCount returns the number of global object slots.
func (s *Script) ObjectSlotCount() int {
	return backendQuery(s, "ObjectSlotCount", func(b artifact.Backend) int { return len(b.ObjectSlots()) })
}

// ExportVarList returns the addresses of exported variables.
func (s *Script) ExportVarList() []uint64 {
	return backendQuery(s, "ExportVarList", func(b artifact.Backend) []uint64 { return addresses(b.ExportVars()) })
}

// ExportFuncList returns the addresses of exported functions.
func (s *Script) ExportFuncList() []uint64 {
	return backendQuery(s, "ExportFuncList", func(b artifact.Backend) []uint64 { return addresses(b.ExportFuncs()) })
}

// ExportForEachList returns the addresses of for-each kernels.
func (s *Script) ExportForEachList() []uint64 {
	return backendQuery(s, "ExportForEachList", func(b artifact.Backend) []uint64 {
		return addresses(b.ExportForEach())
	})
}

// ExportVarNames returns the names of exported variables.
func (s *Script) ExportVarNames() []string {
	return backendQuery(s, "ExportVarNames", func(b artifact.Backend) []string { return artifact.Names(b.ExportVars()) })
}

// ExportFuncNames returns the names of exported functions.
func (s *Script) ExportFuncNames() []string {
	return backendQuery(s, "ExportFuncNames", func(b artifact.Backend) []string { return artifact.Names(b.ExportFuncs()) })
}

// ExportForEachNames returns the names of for-each kernels.
func (s *Script) ExportForEachNames() []string {
	return backendQuery(s, "ExportForEachNames", func(b artifact.Backend) []string {
		return artifact.Names(b.ExportForEach())
	})
}

// PragmaList returns the pragmas in source order.
func (s *Script) PragmaList() []artifact.Pragma {
	return backendQuery(s, "PragmaList", artifact.Backend.Pragmas)
}

// FuncInfoList describes every named function in the image.
func (s *Script) FuncInfoList() []artifact.FuncInfo {
	return backendQuery(s, "FuncInfoList", artifact.Backend.Funcs)
}

// ObjectSlotList returns the indices of exported variables holding object references.
func (s *Script) ObjectSlotList() []uint32 {
	return backendQuery(s, "ObjectSlotList", artifact.Backend.ObjectSlots)
}
