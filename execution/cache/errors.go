package cache

import "errors"

var (
	// ErrDependencyMismatch is returned when the recorded dependency set differs from the
	// current one.
	ErrDependencyMismatch = errors.New("dependency mismatch")

	// ErrContextSlotNotAvail is returned when the entry was produced for a context slot that
	// is not available to this process. The entry may still be valid for another process.
	ErrContextSlotNotAvail = errors.New("context slot not available")

	// ErrCorrupt is returned for unreadable, truncated or tampered entries.
	ErrCorrupt = errors.New("corrupt cache entry")

	// ErrWrite is returned when an entry cannot be written.
	ErrWrite = errors.New("failed to write cache entry")
)
