package compiler

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/wasm"
)

// rawModule is a module parsed by a foreign context.
type rawModule struct {
	name string
	code []byte
}

func (m rawModule) Name() string  { return m.name }
func (m rawModule) Bytes() []byte { return m.code }

func newTestCompiler(t *testing.T, opts ...FunctionalOption) *Compiler {
	t.Helper()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	c, err := NewCompiler(append([]FunctionalOption{WithLogHandler(handler)}, opts...)...)
	require.NoError(t, err)
	return c
}

// parse materialises code through a fresh context of c.
func parse(t *testing.T, c *Compiler, name string, code []byte) source.Module {
	t.Helper()
	ctx := context.Background()
	pc, err := c.NewContext(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pc.Close(ctx)) })
	mod, err := pc.ParseModule(ctx, name, code)
	require.NoError(t, err)
	return mod
}

// libraryWithAdd builds a library exporting "add" with the given signature and a trivial body.
func libraryWithAdd(ft *wasm.FunctionType, body []byte) []byte {
	return binary.EncodeModule(&wasm.Module{
		TypeSection:     []*wasm.FunctionType{ft},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "add", Index: 0}},
		CodeSection:     []*wasm.Code{{Body: body}},
		NameSection:     &wasm.NameSection{ModuleName: "mathlib"},
	})
}

// rootWithSections builds a module exporting "root" with extra custom sections.
func rootWithSections(sections ...*wasm.CustomSection) []byte {
	return binary.EncodeModule(&wasm.Module{
		TypeSection:     []*wasm.FunctionType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "root", Index: 0}},
		CodeSection:     []*wasm.Code{{Body: []byte{wasm.OpcodeI32Const, 3, wasm.OpcodeEnd}}},
		CustomSections:  sections,
	})
}
