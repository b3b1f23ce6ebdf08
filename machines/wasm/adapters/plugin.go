package adapters

import (
	"context"

	extismSDK "github.com/extism/go-sdk"
)

type compiledPlugin struct {
	plugin *extismSDK.CompiledPlugin
}

// Wrap adapts an SDK compiled plugin. A nil plugin gives a nil CompiledPlugin.
func Wrap(plugin *extismSDK.CompiledPlugin) CompiledPlugin {
	if plugin == nil {
		return nil
	}
	return &compiledPlugin{plugin: plugin}
}

func (c *compiledPlugin) Instance(
	ctx context.Context,
	config extismSDK.PluginInstanceConfig,
) (PluginInstance, error) {
	p, err := c.plugin.Instance(ctx, config)
	if err != nil {
		return nil, err
	}
	return &pluginInstance{p}, nil
}

func (c *compiledPlugin) Close(ctx context.Context) error {
	return c.plugin.Close(ctx)
}

// pluginInstance only narrows *extismSDK.Plugin to PluginInstance.
type pluginInstance struct {
	*extismSDK.Plugin
}
