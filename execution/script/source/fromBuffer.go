package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"

	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/internal/helpers"
)

// FromBuffer is a named in-memory source.
type FromBuffer struct {
	base
	code []byte
	hash helpers.Digest
}

var _ Info = (*FromBuffer)(nil)

// NewFromBuffer copies code and records its digest. The name identifies the buffer in
// dependency sets and diagnostics, so it must not be empty.
func NewFromBuffer(name string, code []byte, flags Flags) (*FromBuffer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: buffer name is empty", ErrInvalidSource)
	}
	if code == nil {
		return nil, fmt.Errorf("%w: buffer %s is nil", ErrInvalidSource, name)
	}
	if len(code) > MaxSourceSize {
		return nil, fmt.Errorf("%w: buffer %s has %d bytes", ErrSourceTooLarge, name, len(code))
	}

	u := &url.URL{Scheme: "buffer", Host: "inline", Path: "/" + name}
	return &FromBuffer{
		base: base{name: name, flags: flags, sourceURL: u},
		code: slices.Clone(code),
		hash: helpers.DigestBytes(code),
	}, nil
}

// NewFromReader reads the whole reader and stores the content as a buffer source.
func NewFromReader(name string, r io.Reader, flags Flags) (*FromBuffer, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: reader for %s is nil", ErrInvalidSource, name)
	}
	code, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read from reader: %w", ErrSourceNotAvailable, err)
	}
	return NewFromBuffer(name, code, flags)
}

func (s *FromBuffer) String() string {
	return fmt.Sprintf("source.FromBuffer{Name: %s, Bytes: %d}", s.name, len(s.code))
}

// Bytes returns the raw source.
func (s *FromBuffer) Bytes() []byte { return s.code }

func (s *FromBuffer) PrepareModule(ctx context.Context, factory ContextFactory, shared Context) error {
	return s.prepare(ctx, factory, shared, s.code)
}

func (s *FromBuffer) IntroDependency(deps *dependency.Set) {
	if s.flags.Has(FlagSkipDependencyHash) {
		return
	}
	deps.AddDependency(dependency.KindBuffer, s.name, s.hash)
}
