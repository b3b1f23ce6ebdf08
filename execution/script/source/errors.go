package source

import "errors"

var (
	// ErrInvalidSource is returned for empty names, nil buffers or nil modules.
	ErrInvalidSource = errors.New("invalid source")

	// ErrSourceNotAvailable is returned when a file source cannot be found or read.
	ErrSourceNotAvailable = errors.New("source not available")

	// ErrSchemeUnsupported is returned for file origins with a non-file URL scheme.
	ErrSchemeUnsupported = errors.New("unsupported scheme")

	// ErrSourceTooLarge is returned when a source exceeds MaxSourceSize.
	ErrSourceTooLarge = errors.New("source too large")

	// ErrParse is returned when a compiler context rejects the source.
	ErrParse = errors.New("failed to parse source")
)
