package options

import (
	"log/slog"
	"os"
	"testing"

	"github.com/robbyt/go-jitscript/execution/script"
	risorCompiler "github.com/robbyt/go-jitscript/machines/risor/compiler"
	starlarkCompiler "github.com/robbyt/go-jitscript/machines/starlark/compiler"
	"github.com/robbyt/go-jitscript/machines/types"
	wasmCompiler "github.com/robbyt/go-jitscript/machines/wasm/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, cfg *Config, opts ...Option) error {
	t.Helper()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return err
		}
	}
	return nil
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig(types.Wasm)
	assert.Equal(t, types.Wasm, cfg.GetMachineType())
	assert.NotNil(t, cfg.GetHandler())
	assert.Equal(t, DefaultCacheEnv, cfg.GetCacheEnv())
	require.NoError(t, cfg.Validate())
}

func TestWithOptions(t *testing.T) {
	t.Parallel()
	handler := slog.NewTextHandler(os.Stdout, nil)
	cfg := DefaultConfig(types.Starlark)

	err := apply(t, cfg,
		WithLogger(handler),
		WithLogger(nil),
		WithCacheEnv("MY_NOCACHE"),
		WithMainBuffer("main.star", []byte("x = 1"), 0),
		WithLibraryFile("/tmp/lib.star", 0),
		WithScriptOptions(script.WithRelocModel(script.RelocPIC)),
		WithStarlarkOptions(starlarkCompiler.WithGlobals([]string{"ctx"})),
	)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, handler, cfg.GetHandler())
	assert.Equal(t, "MY_NOCACHE", cfg.GetCacheEnv())
	assert.Equal(t, "main.star", cfg.GetSource(script.SlotMain).Name)
	assert.Equal(t, "/tmp/lib.star", cfg.GetSource(script.SlotLibrary).Path)
	assert.Nil(t, cfg.GetSource(5))
	assert.Len(t, cfg.GetScriptOptions(), 1)
	assert.Len(t, cfg.GetStarlarkOptions(), 1)
	assert.Empty(t, cfg.GetWasmOptions())
}

func TestSourceValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{"buffer without name", WithMainBuffer("", []byte("x"), 0), "needs a name"},
		{"nothing", withSource(script.SlotMain, Source{}), "needs a path or code"},
		{"both", withSource(script.SlotMain, Source{Path: "a", Code: []byte("b")}), "both"},
		{"file", WithMainFile("main.wasm", 0), ""},
		{"empty buffer allowed", WithLibraryBuffer("lib", []byte{}, 0), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.opt(DefaultConfig(types.Wasm))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     func() *Config
		wantErr string
	}{
		{"no machine", func() *Config { return &Config{handler: DefaultHandler()} }, "no machine type"},
		{"no handler", func() *Config { return &Config{machineType: types.Wasm} }, "no log handler"},
		{
			"wasm options on starlark",
			func() *Config {
				cfg := DefaultConfig(types.Starlark)
				cfg.wasmOptions = []wasmCompiler.FunctionalOption{wasmCompiler.WithPluginLoading(false)}
				return cfg
			},
			"wasm options",
		},
		{
			"starlark options on wasm",
			func() *Config {
				cfg := DefaultConfig(types.Wasm)
				cfg.starlarkOptions = []starlarkCompiler.FunctionalOption{starlarkCompiler.WithGlobals(nil)}
				return cfg
			},
			"starlark options",
		},
		{
			"risor options on starlark",
			func() *Config {
				cfg := DefaultConfig(types.Starlark)
				cfg.risorOptions = []risorCompiler.FunctionalOption{risorCompiler.WithGlobals(nil)}
				return cfg
			},
			"risor options",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithMachineType(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	require.NoError(t, WithMachineType(types.Starlark)(cfg))
	assert.Equal(t, types.Starlark, cfg.GetMachineType())
	require.NoError(t, WithMachineType(types.Risor)(cfg))
	require.NoError(t, WithRisorOptions(risorCompiler.WithGlobals([]string{"ctx"}))(cfg))
	assert.Len(t, cfg.GetRisorOptions(), 1)
	require.Error(t, WithMachineType("lua")(cfg))
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	require.NoError(t, WithDefaults()(cfg))
	assert.NotNil(t, cfg.GetHandler())
}
