// Package debugger records generated code images so that an attached debugger can map
// addresses back to symbols. Registration is safe for concurrent use and idempotent.
package debugger

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robbyt/go-jitscript/internal/helpers"
)

// Registrar accepts code images.
type Registrar interface {
	Register(image []byte)
}

// Entry is one registered image.
type Entry struct {
	Digest       helpers.Digest
	Size         int
	RegisteredAt time.Time
}

// Registry is the in-process registration table.
type Registry struct {
	mu      sync.Mutex
	logger  *slog.Logger
	entries []Entry
	seen    map[helpers.Digest]struct{}
}

var _ Registrar = (*Registry)(nil)

// Default is the process-wide registry.
var Default = NewRegistry(slog.Default().Handler())

// NewRegistry creates an empty registry.
func NewRegistry(handler slog.Handler) *Registry {
	_, logger := helpers.SetupLogger(handler, "debugger", "Registry")
	return &Registry{
		logger: logger,
		seen:   make(map[helpers.Digest]struct{}),
	}
}

// Register adds an image. Registering identical bytes again is a no-op, and empty images are
// ignored.
func (r *Registry) Register(image []byte) {
	if len(image) == 0 {
		return
	}
	digest := helpers.DigestBytes(image)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[digest]; ok {
		return
	}
	r.seen[digest] = struct{}{}
	r.entries = append(r.entries, Entry{
		Digest:       digest,
		Size:         len(image),
		RegisteredAt: time.Now(),
	})
	r.logger.Debug("Registered code image", "size", len(image), "digest", digest.Short())
}

// Entries returns the registered images in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Len returns the number of registered images.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
