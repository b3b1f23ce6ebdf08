package compiler

import "errors"

var (
	ErrContentNil         = errors.New("wasm content is nil")
	ErrInvalidModule      = errors.New("invalid wasm module")
	ErrValidationFailed   = errors.New("wasm module validation error")
	ErrLinkFailed         = errors.New("wasm link error")
	ErrInvalidAnnotation  = errors.New("invalid wasm annotation section")
	ErrUnsupportedType    = errors.New("unsupported wasm value type")
	ErrEntryPointNotFound = errors.New("entry point not found in wasm module")
	ErrExecCreationFailed = errors.New("unable to create wasm executable")
	ErrContextClosed      = errors.New("wasm parse context is closed")
)
