package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	_ CompiledPlugin = (*compiledPlugin)(nil)
	_ PluginInstance = (*pluginInstance)(nil)
	_ CompiledPlugin = (*MockCompiledPlugin)(nil)
	_ PluginInstance = (*MockPluginInstance)(nil)
)

func TestWrapNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Wrap(nil))
}

func TestMissingExports(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newPlugin := func(exports map[string]bool, closeErr error) (*MockCompiledPlugin, *MockPluginInstance) {
		instance := &MockPluginInstance{}
		for name, ok := range exports {
			instance.On("FunctionExists", name).Return(ok).Once()
		}
		instance.On("Close", ctx).Return(closeErr).Once()
		plugin := &MockCompiledPlugin{}
		plugin.On("Instance", ctx, mock.Anything).Return(instance, nil).Once()
		return plugin, instance
	}

	t.Run("all present", func(t *testing.T) {
		t.Parallel()
		plugin, instance := newPlugin(map[string]bool{"root": true, "add": true}, nil)
		missing, err := MissingExports(ctx, plugin, "root", "add", "root")
		require.NoError(t, err)
		assert.Empty(t, missing)
		plugin.AssertExpectations(t)
		instance.AssertExpectations(t)
	})

	t.Run("reports missing in order", func(t *testing.T) {
		t.Parallel()
		plugin, instance := newPlugin(map[string]bool{"b": false, "a": true, "c": false}, nil)
		missing, err := MissingExports(ctx, plugin, "b", "a", "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, missing)
		instance.AssertExpectations(t)
	})

	t.Run("close error", func(t *testing.T) {
		t.Parallel()
		plugin, _ := newPlugin(map[string]bool{"root": true}, errors.New("close failed"))
		_, err := MissingExports(ctx, plugin, "root")
		require.ErrorContains(t, err, "close failed")
	})

	t.Run("instance error", func(t *testing.T) {
		t.Parallel()
		plugin := &MockCompiledPlugin{}
		plugin.On("Instance", ctx, mock.Anything).Return(nil, errors.New("boom"))
		missing, err := MissingExports(ctx, plugin, "root")
		require.ErrorContains(t, err, "boom")
		assert.Nil(t, missing)
	})
}
