package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/risor-io/risor/ast"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"

	"github.com/robbyt/go-jitscript/execution/script/source"
)

// Module is a parsed Risor source.
type Module struct {
	name string
	code []byte
	prog *ast.Program
}

var _ source.Module = (*Module)(nil)

func (m *Module) Name() string  { return m.name }
func (m *Module) Bytes() []byte { return m.code }

// Program returns the syntax tree.
func (m *Module) Program() *ast.Program { return m.prog }

// parseProgram wraps parser errors with the friendlier message risor offers for syntax errors.
func parseProgram(ctx context.Context, name, code string) (*ast.Program, error) {
	prog, err := risorParser.Parse(ctx, code)
	if err != nil {
		msg := err.Error()
		var friendly risorErrors.FriendlyError
		if errors.As(err, &friendly) {
			msg = friendly.FriendlyErrorMessage()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrSyntax, name, msg)
	}
	return prog, nil
}

func parse(ctx context.Context, name string, code []byte) (*Module, error) {
	if len(code) == 0 {
		return nil, ErrContentNil
	}
	if commentOnly(code) {
		return nil, fmt.Errorf("%w: %s", ErrNoInstructions, name)
	}
	prog, err := parseProgram(ctx, name, string(code))
	if err != nil {
		return nil, err
	}
	return &Module{name: name, code: slices.Clone(code), prog: prog}, nil
}

// commentOnly reports whether code holds nothing but blank lines and comments.
func commentOnly(code []byte) bool {
	for line := range strings.SplitSeq(string(code), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "//") {
			return false
		}
	}
	return true
}

// parseContext parses sources for one compiler. It holds no runtime resources.
type parseContext struct {
	logger *slog.Logger
}

var _ source.Context = (*parseContext)(nil)

func (p *parseContext) ParseModule(ctx context.Context, name string, code []byte) (source.Module, error) {
	mod, err := parse(ctx, name, code)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Parsed module", "name", name, "statements", len(mod.prog.Statements()))
	return mod, nil
}

func (p *parseContext) Close(context.Context) error { return nil }
