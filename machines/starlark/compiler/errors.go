package compiler

import "errors"

var (
	ErrContentNil         = errors.New("starlark content is nil")
	ErrSyntax             = errors.New("starlark syntax error")
	ErrValidationFailed   = errors.New("starlark script validation error")
	ErrInvalidAnnotation  = errors.New("invalid starlark annotation")
	ErrExecCreationFailed = errors.New("unable to create starlark executable")
	ErrInvalidImage       = errors.New("invalid starlark code image")
	ErrNotLoaded          = errors.New("starlark executable is not loaded")
	ErrNotCallable        = errors.New("starlark global is not callable")
)
