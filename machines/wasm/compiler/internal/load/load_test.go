package load

import (
	"context"
	"testing"

	extismSDK "github.com/extism/go-sdk"
	"github.com/robbyt/go-jitscript/machines/wasm/wasmdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func TestPlugin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("standalone module", func(t *testing.T) {
		t.Parallel()
		plugin, err := Plugin(ctx, []Module{{Name: MainModuleName, Data: wasmdata.Standalone(7)}}, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, plugin)
		defer func() { require.NoError(t, plugin.Close(ctx)) }()

		instance, err := plugin.Instance(ctx, extismSDK.PluginInstanceConfig{})
		require.NoError(t, err)
		defer func() { require.NoError(t, instance.Close(ctx)) }()

		assert.True(t, instance.FunctionExists("root"))
		assert.False(t, instance.FunctionExists("missing"))
	})

	t.Run("custom settings", func(t *testing.T) {
		t.Parallel()
		settings := &Settings{
			EnableWASI:    false,
			RuntimeConfig: wazero.NewRuntimeConfig(),
		}
		plugin, err := Plugin(ctx, []Module{{Name: MainModuleName, Data: wasmdata.Standalone(1)}}, settings, nil)
		require.NoError(t, err)
		require.NoError(t, plugin.Close(ctx))
	})

	t.Run("no modules", func(t *testing.T) {
		t.Parallel()
		plugin, err := Plugin(ctx, nil, nil, nil)
		require.ErrorIs(t, err, ErrNoModules)
		assert.Nil(t, plugin)
	})

	t.Run("invalid binary", func(t *testing.T) {
		t.Parallel()
		plugin, err := Plugin(ctx, []Module{{Name: MainModuleName, Data: []byte("not wasm")}}, nil, nil)
		require.ErrorIs(t, err, ErrLoadFailed)
		assert.Nil(t, plugin)
	})
}

func TestWithDefaults(t *testing.T) {
	t.Parallel()
	s := withDefaults(nil)
	assert.True(t, s.EnableWASI)
	assert.NotNil(t, s.RuntimeConfig)

	custom := withDefaults(&Settings{EnableWASI: false})
	assert.False(t, custom.EnableWASI)
	assert.NotNil(t, custom.RuntimeConfig)
}
