package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/internal/helpers"
)

// FromFile is a source read from disk. The content is read and hashed once, at construction,
// so the module that gets compiled always matches the recorded dependency.
type FromFile struct {
	base
	path string
	code []byte
	hash helpers.Digest
}

var _ Info = (*FromFile)(nil)

// NewFromFile reads the file at path. A "file://" prefix is accepted; other schemes are not.
// Relative paths are resolved against the working directory.
func NewFromFile(path string, flags Flags) (*FromFile, error) {
	path = strings.TrimPrefix(path, "file://")
	if strings.Contains(path, "://") {
		return nil, fmt.Errorf("%w: %s", ErrSchemeUnsupported, path)
	}

	path = filepath.Clean(path)
	if path == "" || path == "." || path == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: path is empty or invalid", ErrSourceNotAvailable)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
	}

	st, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", ErrSourceNotAvailable, abs)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
	case st.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrSourceNotAvailable, abs)
	case st.Size() > MaxSourceSize:
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrSourceTooLarge, abs, st.Size())
	}

	code, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotAvailable, err)
	}

	return &FromFile{
		base: base{
			name:      abs,
			flags:     flags,
			sourceURL: &url.URL{Scheme: "file", Path: abs},
		},
		path: abs,
		code: code,
		hash: helpers.DigestBytes(code),
	}, nil
}

func (s *FromFile) String() string {
	return fmt.Sprintf("source.FromFile{Path: %s, SHA256: %x}", s.path, s.hash[:4])
}

// Path returns the absolute file path.
func (s *FromFile) Path() string { return s.path }

func (s *FromFile) PrepareModule(ctx context.Context, factory ContextFactory, shared Context) error {
	return s.prepare(ctx, factory, shared, s.code)
}

func (s *FromFile) IntroDependency(deps *dependency.Set) {
	if s.flags.Has(FlagSkipDependencyHash) {
		return
	}
	deps.AddDependency(dependency.KindFile, s.path, s.hash)
}
