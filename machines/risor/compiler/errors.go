package compiler

import "errors"

var (
	ErrContentNil         = errors.New("risor content is nil")
	ErrSyntax             = errors.New("risor syntax error")
	ErrNoInstructions     = errors.New("risor bytecode has zero instructions")
	ErrValidationFailed   = errors.New("risor script validation error")
	ErrInvalidAnnotation  = errors.New("invalid risor annotation")
	ErrExecCreationFailed = errors.New("unable to create risor executable")
	ErrInvalidImage       = errors.New("invalid risor code image")
	ErrNotLoaded          = errors.New("risor executable is not loaded")
	ErrNotCallable        = errors.New("risor global is not callable")
)
