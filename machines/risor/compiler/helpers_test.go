package compiler

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/stretchr/testify/require"
)

const libSource = `
scale := 2

func add(a, b) {
    return a + b
}

_hidden := 1
`

const mainSource = `
pragma("version", "1")
pragma("mode", "fast")

counter := 0
cache := {}

func root(n) {
    return add(n, scale)
}

export_foreach("root")
`

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

func parseSource(t *testing.T, c *Compiler, name, code string) source.Module {
	t.Helper()
	ctx := context.Background()
	pc, err := c.NewContext(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pc.Close(ctx)) })
	mod, err := pc.ParseModule(ctx, name, []byte(code))
	require.NoError(t, err)
	return mod
}
