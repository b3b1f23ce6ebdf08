package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/tetratelabs/wabin/binary"
	"github.com/tetratelabs/wabin/wasm"
	"github.com/tetratelabs/wazero"
)

// Features are the core features accepted when decoding modules.
const Features = wasm.CoreFeaturesV2

// Module is a decoded and validated wasm module.
type Module struct {
	name     string
	code     []byte
	decoded  *wasm.Module
	linkName string
}

var _ source.Module = (*Module)(nil)

func (m *Module) Name() string  { return m.name }
func (m *Module) Bytes() []byte { return m.code }

// Decoded returns the wabin representation of the module. It must not be modified.
func (m *Module) Decoded() *wasm.Module { return m.decoded }

// LinkName is the name other modules import this one by: the name recorded in a code image,
// then the module name from the name section, otherwise the source name without directory or
// extension.
func (m *Module) LinkName() string {
	if m.linkName != "" {
		return m.linkName
	}
	if ns := m.decoded.NameSection; ns != nil && ns.ModuleName != "" {
		return ns.ModuleName
	}
	base := path.Base(m.name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func decode(name string, code []byte) (*Module, error) {
	if len(code) == 0 {
		return nil, ErrContentNil
	}
	decoded, err := binary.DecodeModule(code, Features)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidModule, name, err)
	}
	return &Module{name: name, code: slices.Clone(code), decoded: decoded}, nil
}

// asModule accepts modules parsed by another context by decoding their bytes.
func asModule(m source.Module) (*Module, error) {
	if m == nil {
		return nil, ErrContentNil
	}
	if mod, ok := m.(*Module); ok {
		return mod, nil
	}
	return decode(m.Name(), m.Bytes())
}

// parseContext decodes modules with wabin and validates them with a wazero runtime shared by
// every module parsed in it.
type parseContext struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	logger  *slog.Logger
}

var _ source.Context = (*parseContext)(nil)

func (p *parseContext) ParseModule(ctx context.Context, name string, code []byte) (source.Module, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runtime == nil {
		return nil, ErrContextClosed
	}

	mod, err := decode(name, code)
	if err != nil {
		return nil, err
	}

	compiled, err := p.runtime.CompileModule(ctx, mod.code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidationFailed, name, err)
	}
	if err := compiled.Close(ctx); err != nil {
		p.logger.Warn("Failed to close compiled module", "name", name, "error", err)
	}

	p.logger.Debug("Parsed module", "name", name, "linkName", mod.LinkName(), "size", len(code))
	return mod, nil
}

func (p *parseContext) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runtime == nil {
		return nil
	}
	err := p.runtime.Close(ctx)
	p.runtime = nil
	return err
}
