package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-jitscript/machines/wasm/wasmdata"
)

const starlarkLib = `
scale = 2

def add(a, b):
    return a + b
`

const starlarkMain = `
pragma("mode", "fast")

cache = {}

def root(n):
    return add(n, scale)

export_foreach("root")
`

// run executes the app with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(context.Background(), append([]string{"jitscript", "--log-level", "error"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func starlarkJob(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--machine", "starlark",
		"--main", writeFile(t, dir, "main.star", []byte(starlarkMain)),
		"--lib", writeFile(t, dir, "lib.star", []byte(starlarkLib)),
		"--cache-dir", filepath.Join(dir, "cache"),
		"--key", "main",
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "jitscript version dev\n", out)
}

func TestCompileStarlark(t *testing.T) {
	t.Parallel()
	job := starlarkJob(t)

	out, err := run(t, append([]string{"check"}, job...)...)
	require.ErrorIs(t, err, errCacheUnusable)
	assert.Empty(t, out)

	out, err = run(t, append([]string{"compile"}, job...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "State: compiled")
	assert.Contains(t, out, "Object: executable")
	assert.Contains(t, out, "For-each kernels: root")
	assert.Contains(t, out, "Pragmas: mode=fast")
	assert.Contains(t, out, "Object slots: 1")

	out, err = run(t, append([]string{"check"}, job...)...)
	require.NoError(t, err)
	assert.Equal(t, "cache entry main is valid\n", out)

	out, err = run(t, append([]string{"compile"}, job...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "State: cached")

	out, err = run(t, append([]string{"compile", "--no-cache-load"}, job...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "State: compiled")
}

func TestCompileError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	main := writeFile(t, dir, "main.star", []byte("def root(:\n"))

	_, err := run(t, "compile", "--machine", "starlark", "--main", main)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile failed")
}

func TestCompileWasmFromConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "kernel.wasm", wasmdata.Kernel(5))
	writeFile(t, dir, "mathlib.wasm", wasmdata.Library())
	job := writeFile(t, dir, "job.toml", []byte(`
machine = "wasm"

[main]
path = "`+filepath.Join(dir, "kernel.wasm")+`"

[library]
path = "`+filepath.Join(dir, "mathlib.wasm")+`"

[cache]
dir = "`+filepath.Join(dir, "cache")+`"
key = "kernel"

[wasm]
skip_load = true
`))

	out, err := run(t, "compile", "--config", job)
	require.NoError(t, err)
	assert.Contains(t, out, "State: compiled")
	assert.Contains(t, out, "For-each kernels: root")
	assert.Contains(t, out, "Pragmas: version=1, mode=fast")
	assert.FileExists(t, filepath.Join(dir, "cache", "kernel.o"))

	out, err = run(t, "compile", "--config", job, "--no-cache-store", "--key", "other")
	require.NoError(t, err)
	assert.Contains(t, out, "State: compiled")
	assert.NoFileExists(t, filepath.Join(dir, "cache", "other.o"))
}

func TestRelocatable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	main := writeFile(t, dir, "standalone.wasm", wasmdata.Standalone(42))
	output := filepath.Join(dir, "standalone.o")

	out, err := run(t, "relocatable", "--machine", "wasm", "--main", main, "-o", output, "--reloc", "pic")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+output)
	assert.Contains(t, out, "pic")
	assert.FileExists(t, output)

	_, err = run(t, "relocatable", "--machine", "wasm", "--main", main, "-o", output, "--reloc", "large")
	require.Error(t, err)
}

func TestJobErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"no machine", []string{"compile", "--main", "main.star"}},
		{"no main", []string{"compile", "--machine", "wasm"}},
		{"bad symbol", []string{"compile", "--machine", "wasm", "--main", "m.wasm", "--symbol", "noaddr"}},
		{"missing config", []string{"compile", "--config", "/nonexistent/job.toml"}},
		{"check without cache", []string{"check", "--machine", "wasm", "--main", "m.wasm"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := run(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestSymbolsFromFlags(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	main := writeFile(t, dir, "host.wasm", wasmdata.Host())

	_, err := run(t, "compile", "--machine", "wasm", "--main", main)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved symbol")

	job := writeFile(t, dir, "job.toml", []byte("[wasm]\nskip_load = true\n"))
	out, err := run(t, "compile", "--config", job,
		"--machine", "wasm", "--main", main, "--symbol", "clock_now=0x1000")
	require.NoError(t, err)
	assert.Contains(t, out, "State: compiled")
}
