// Package cache serialises prepared scripts into a pair of files: the raw code image and a
// CBOR metadata record holding the dependency set that validates the entry on later loads.
package cache

import (
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
)

// File suffixes of a cache entry.
const (
	ObjectSuffix = ".o"
	InfoSuffix   = ".info"
)

// Serializer reads and writes cache entries.
type Serializer interface {
	// Read validates the entry against the expected context slot and dependency set and
	// reconstructs its backend. The second return value is the entry's threadable flag.
	Read(obj, info io.Reader, slot string, deps *dependency.Set) (*Backend, bool, error)

	// Write persists the backend's image to obj and its metadata to info.
	Write(
		obj, info io.Writer,
		slot string,
		deps *dependency.Set,
		backend artifact.Backend,
		threadable bool,
	) error
}

// Paths returns the object and info file paths for a cache key. The directory is treated as
// if it ended with a path separator.
func Paths(dir, key string) (obj string, info string) {
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	base := dir + key
	return base + ObjectSuffix, base + InfoSuffix
}

// ContextSlot names the execution context an entry is valid for.
func ContextSlot(machine string) string {
	return runtime.GOOS + "/" + runtime.GOARCH + "/" + machine
}

// Backend answers queries for an entry loaded from disk.
type Backend struct {
	*artifact.Table
	slot string
	deps *dependency.Set
}

var _ artifact.Backend = (*Backend)(nil)

// Slot returns the context slot the entry was written for.
func (b *Backend) Slot() string { return b.slot }

// Dependencies returns the recorded dependency set.
func (b *Backend) Dependencies() *dependency.Set { return b.deps }
