// Package wasmdata builds small WebAssembly modules used as test fixtures. They are assembled
// with the wabin encoder so that no binary blobs need to be checked in.
package wasmdata

import (
	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/leb128"
	"github.com/tetratelabs/wabin/wasm"
)

const (
	// LibraryName is the module name of the support library fixture.
	LibraryName = "mathlib"

	// KernelName is the module name of the fixture that links against the library.
	KernelName = "kernel"

	// StandaloneName is the module name of the fixture without imports.
	StandaloneName = "standalone"

	// HostName is the module name of the fixture importing a host symbol.
	HostName = "hostkernel"

	// HostModule and HostSymbol name the import of the host fixture.
	HostModule = "env"
	HostSymbol = "clock_now"

	// PragmaSection and ForEachSection are the custom sections carrying annotations.
	PragmaSection  = "jit.pragma"
	ForEachSection = "jit.foreach"
)

var i32i32toI32 = &wasm.FunctionType{
	Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
	Results: []wasm.ValueType{wasm.ValueTypeI32},
}

var voidToI32 = &wasm.FunctionType{
	Results: []wasm.ValueType{wasm.ValueTypeI32},
}

func i32Const(v int32) []byte {
	return append([]byte{wasm.OpcodeI32Const}, leb128.EncodeInt32(v)...)
}

func i32Global(mutable bool, v int32) *wasm.Global {
	return &wasm.Global{
		Type: &wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: mutable},
		Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: leb128.EncodeInt32(v)},
	}
}

func externrefGlobal() *wasm.Global {
	return &wasm.Global{
		Type: &wasm.GlobalType{ValType: wasm.ValueTypeExternref, Mutable: true},
		Init: &wasm.ConstantExpression{Opcode: wasm.OpcodeRefNull, Data: []byte{wasm.RefTypeExternref}},
	}
}

func memory() *wasm.Memory {
	return &wasm.Memory{Min: 1, Max: 1, IsMaxEncoded: true}
}

// Library returns the support library: an exported "add" function and an immutable "scale"
// global.
func Library() []byte {
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{i32i32toI32},
		FunctionSection: []wasm.Index{0},
		GlobalSection:   []*wasm.Global{i32Global(false, 2)},
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "add", Index: 0},
			{Type: wasm.ExternTypeGlobal, Name: "scale", Index: 0},
		},
		CodeSection: []*wasm.Code{
			{Body: []byte{
				wasm.OpcodeLocalGet, 0,
				wasm.OpcodeLocalGet, 1,
				wasm.OpcodeI32Add,
				wasm.OpcodeEnd,
			}},
		},
		NameSection: &wasm.NameSection{
			ModuleName:    LibraryName,
			FunctionNames: wasm.NameMap{{Index: 0, Name: "add"}},
		},
	}
	return binary.EncodeModule(m)
}

// Kernel returns a main module importing "add" from the library. Its exported "root"
// function returns add(1, v). It exports a counter global and an externref object slot, and
// carries pragma and for-each annotations.
func Kernel(v int32) []byte {
	body := append(i32Const(1), i32Const(v)...)
	body = append(body, wasm.OpcodeCall, 0, wasm.OpcodeEnd)

	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{i32i32toI32, voidToI32},
		ImportSection: []*wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: LibraryName, Name: "add", DescFunc: 0},
		},
		FunctionSection: []wasm.Index{1},
		GlobalSection:   []*wasm.Global{i32Global(true, 0), externrefGlobal()},
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "root", Index: 1},
			{Type: wasm.ExternTypeGlobal, Name: "gCount", Index: 0},
			{Type: wasm.ExternTypeGlobal, Name: "gAlloc", Index: 1},
		},
		CodeSection: []*wasm.Code{{Body: body}},
		NameSection: &wasm.NameSection{
			ModuleName: KernelName,
			FunctionNames: wasm.NameMap{
				{Index: 0, Name: "add"},
				{Index: 1, Name: "root"},
			},
		},
		CustomSections: []*wasm.CustomSection{
			{Name: PragmaSection, Data: []byte("version=1\nmode=fast\n")},
			{Name: ForEachSection, Data: []byte("root\n")},
		},
	}
	return binary.EncodeModule(m)
}

// Standalone returns a main module without imports. Its exported "root" function returns v.
// It exports a memory so it can be loaded as a plugin.
func Standalone(v int32) []byte {
	body := append(i32Const(v), wasm.OpcodeEnd)
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{voidToI32},
		FunctionSection: []wasm.Index{0},
		MemorySection:   memory(),
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "root", Index: 0},
			{Type: wasm.ExternTypeMemory, Name: "memory", Index: 0},
		},
		CodeSection: []*wasm.Code{{Body: body}},
		NameSection: &wasm.NameSection{
			ModuleName:    StandaloneName,
			FunctionNames: wasm.NameMap{{Index: 0, Name: "root"}},
		},
		CustomSections: []*wasm.CustomSection{
			{Name: ForEachSection, Data: []byte("root")},
		},
	}
	return binary.EncodeModule(m)
}

// Host returns a main module importing HostSymbol from HostModule. Its exported "root"
// function returns the low 32 bits of the imported i64 function's result.
func Host() []byte {
	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{
			{Results: []wasm.ValueType{wasm.ValueTypeI64}},
			voidToI32,
		},
		ImportSection: []*wasm.Import{
			{Type: wasm.ExternTypeFunc, Module: HostModule, Name: HostSymbol, DescFunc: 0},
		},
		FunctionSection: []wasm.Index{1},
		MemorySection:   memory(),
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "root", Index: 1},
			{Type: wasm.ExternTypeMemory, Name: "memory", Index: 0},
		},
		CodeSection: []*wasm.Code{{Body: []byte{
			wasm.OpcodeCall, 0,
			wasm.OpcodeI32WrapI64,
			wasm.OpcodeEnd,
		}}},
		NameSection: &wasm.NameSection{
			ModuleName:    HostName,
			FunctionNames: wasm.NameMap{{Index: 1, Name: "root"}},
		},
	}
	return binary.EncodeModule(m)
}

// WithCustomSection returns a copy of bin with an extra custom section appended.
func WithCustomSection(bin []byte, name string, data []byte) []byte {
	m, err := binary.DecodeModule(bin, wasm.CoreFeaturesV2)
	if err != nil {
		panic(err)
	}
	m.CustomSections = append(m.CustomSections, &wasm.CustomSection{Name: name, Data: data})
	return binary.EncodeModule(m)
}
