package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/robbyt/go-jitscript/execution/script/source"
	"go.starlark.net/syntax"
)

// Module is a parsed Starlark source.
type Module struct {
	name string
	code []byte
	file *syntax.File
}

var _ source.Module = (*Module)(nil)

func (m *Module) Name() string  { return m.name }
func (m *Module) Bytes() []byte { return m.code }

// File returns the syntax tree. It is never resolved, so it can be scanned repeatedly.
func (m *Module) File() *syntax.File { return m.file }

func parse(opts *syntax.FileOptions, name string, code []byte) (*Module, error) {
	if len(code) == 0 {
		return nil, ErrContentNil
	}
	f, err := opts.Parse(name, code, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
	}
	return &Module{name: name, code: slices.Clone(code), file: f}, nil
}

// parseContext parses sources with one set of dialect options. It holds no runtime resources.
type parseContext struct {
	opts   *syntax.FileOptions
	logger *slog.Logger
}

var _ source.Context = (*parseContext)(nil)

func (p *parseContext) ParseModule(_ context.Context, name string, code []byte) (source.Module, error) {
	mod, err := parse(p.opts, name, code)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Parsed module", "name", name, "statements", len(mod.file.Stmts))
	return mod, nil
}

func (p *parseContext) Close(context.Context) error { return nil }
