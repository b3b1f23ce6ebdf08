package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/internal/helpers"
)

// FromModule wraps a module that was parsed by the caller. It needs no materialisation.
type FromModule struct {
	base
}

var _ Info = (*FromModule)(nil)

// NewFromModule adopts an already parsed module.
func NewFromModule(mod Module, flags Flags) (*FromModule, error) {
	if mod == nil {
		return nil, fmt.Errorf("%w: module is nil", ErrInvalidSource)
	}
	name := mod.Name()
	if name == "" {
		name = "module"
	}
	return &FromModule{
		base: base{
			name:      name,
			flags:     flags,
			sourceURL: &url.URL{Scheme: "module", Host: "parsed", Path: "/" + name},
			module:    mod,
			prepared:  true,
		},
	}, nil
}

func (s *FromModule) String() string {
	return fmt.Sprintf("source.FromModule{Name: %s}", s.name)
}

// PrepareModule records the shared context, if any. The module itself is already parsed.
func (s *FromModule) PrepareModule(_ context.Context, _ ContextFactory, shared Context) error {
	if s.pctx == nil {
		s.pctx = shared
	}
	return nil
}

// IntroDependency contributes the module's name and content hash. Modules without bytes
// contribute nothing.
func (s *FromModule) IntroDependency(deps *dependency.Set) {
	if s.flags.Has(FlagSkipDependencyHash) {
		return
	}
	code := s.module.Bytes()
	if len(code) == 0 {
		return
	}
	deps.AddDependency(dependency.KindModule, s.name, helpers.DigestBytes(code))
}
