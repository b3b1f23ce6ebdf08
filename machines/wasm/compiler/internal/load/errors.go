package load

import "errors"

var (
	ErrLoadFailed = errors.New("failed to load wasm modules")
	ErrNoModules  = errors.New("no wasm modules to load")
)
