package script

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the last failing call on a Script.
type ErrorCode int

const (
	ErrorNone ErrorCode = iota
	// ErrorInvalidArgument reports a nil, empty or unreadable caller input.
	ErrorInvalidArgument
	// ErrorInvalidOperation reports a call made in the wrong lifecycle state.
	ErrorInvalidOperation
	// ErrorOutOfMemory reports that an internal object could not be constructed.
	ErrorOutOfMemory
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "none"
	case ErrorInvalidArgument:
		return "invalid argument"
	case ErrorInvalidOperation:
		return "invalid operation"
	case ErrorOutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrCompiler         = errors.New("compiler failed or is invalid")
	ErrNoMainSource     = errors.New("main source is not set")
	ErrWriteObject      = errors.New("failed to write object file")
)

// sentinelFor maps an error code to the error wrapped by failing calls.
func sentinelFor(code ErrorCode) error {
	switch code {
	case ErrorInvalidArgument:
		return ErrInvalidArgument
	case ErrorOutOfMemory:
		return ErrOutOfMemory
	default:
		return ErrInvalidOperation
	}
}
