package adapters

import (
	"context"
	"errors"

	extismSDK "github.com/extism/go-sdk"
)

// MissingExports instantiates plugin once and returns the names it does not export as
// functions, in the order given. Each name is checked once.
func MissingExports(ctx context.Context, plugin CompiledPlugin, names ...string) (missing []string, err error) {
	instance, err := plugin.Instance(ctx, extismSDK.PluginInstanceConfig{})
	if err != nil {
		return nil, err
	}
	defer func() { err = errors.Join(err, instance.Close(ctx)) }()

	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !instance.FunctionExists(name) {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
