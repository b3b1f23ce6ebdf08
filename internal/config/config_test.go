package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/machines/types"
	"github.com/robbyt/go-jitscript/options"
)

//go:embed testdata/wasm.toml
var wasmJob []byte

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(wasmJob)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, "wasm", cfg.Machine)
	assert.Equal(t, "kernel.wasm", cfg.Main.Path)
	assert.Equal(t, source.Flags(0), cfg.Main.Flags())
	require.NotNil(t, cfg.Library)
	assert.Equal(t, source.FlagSkipDependencyHash, cfg.Library.Flags())
	assert.Equal(t, Cache{Dir: "/var/cache/jitscript", Key: "kernel", Env: "KERNEL_NOCACHE"}, cfg.Cache)
	assert.True(t, cfg.Wasm.SkipLoad)
	assert.False(t, cfg.Wasm.DisableWASI)
	assert.Equal(t, uint32(32), cfg.Wasm.MemoryLimitPages)
	assert.Empty(t, cfg.Wasm.CompilationCacheDir)

	resolver, err := cfg.Resolver()
	require.NoError(t, err)
	addr, ok := resolver.ResolveSymbol("clock_now")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1000), addr)
	addr, ok = resolver.ResolveSymbol("tick")
	require.True(t, ok)
	assert.Equal(t, uint64(4096), addr)
	_, ok = resolver.ResolveSymbol("missing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty", "", ErrNoSourceData},
		{"bad toml", "machine = ", ErrParseToml},
		{"wrong version", `version = "v9"`, ErrUnsupportedVer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{Version: Version, Machine: "starlark", Main: Source{Path: "main.star"}}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown machine", func(c *Config) { c.Machine = "lua" }, "unknown machine type"},
		{"no main", func(c *Config) { c.Main.Path = "" }, "main source path"},
		{"empty library", func(c *Config) { c.Library = &Source{} }, "library source path"},
		{"key without dir", func(c *Config) { c.Cache.Key = "k" }, "set together"},
		{"bad symbol", func(c *Config) { c.Symbols = map[string]string{"f": "zz"} }, "invalid address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrFailedValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolverEmpty(t *testing.T) {
	t.Parallel()
	resolver, err := (&Config{}).Resolver()
	require.NoError(t, err)
	assert.Nil(t, resolver)
}

func TestLoadAndOptions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
machine = "starlark"

[main]
path = "main.star"

[starlark]
globals = ["ctx"]
max_init_steps = 10000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	optCfg := options.DefaultConfig(types.Wasm)
	for _, opt := range cfg.Options(options.DefaultHandler()) {
		require.NoError(t, opt(optCfg))
	}
	require.NoError(t, optCfg.Validate())
	assert.Equal(t, types.Starlark, optCfg.GetMachineType())
	assert.Equal(t, "main.star", optCfg.GetSource(0).Path)
	assert.Nil(t, optCfg.GetSource(1))
	assert.Len(t, optCfg.GetStarlarkOptions(), 2)
	assert.Equal(t, options.DefaultCacheEnv, optCfg.GetCacheEnv())

	_, err = Load(filepath.Join(dir, "absent.toml"))
	require.Error(t, err)
}

func TestRisorOptions(t *testing.T) {
	t.Parallel()
	cfg, err := Parse([]byte(`
machine = "risor"

[main]
path = "main.risor"

[risor]
globals = ["ctx", "host_clock"]
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"ctx", "host_clock"}, cfg.Risor.Globals)

	optCfg := options.DefaultConfig(types.Risor)
	for _, opt := range cfg.Options(options.DefaultHandler()) {
		require.NoError(t, opt(optCfg))
	}
	require.NoError(t, optCfg.Validate())
	assert.Equal(t, types.Risor, optCfg.GetMachineType())
	assert.Len(t, optCfg.GetRisorOptions(), 1)
	assert.Empty(t, optCfg.GetStarlarkOptions())
}
