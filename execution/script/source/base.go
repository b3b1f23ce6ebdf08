package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// base carries the lazy materialisation logic shared by every origin.
type base struct {
	name      string
	flags     Flags
	sourceURL *url.URL

	module   Module
	pctx     Context
	ownsCtx  bool
	prepared bool
}

func (b *base) Name() string           { return b.name }
func (b *base) GetSourceURL() *url.URL { return b.sourceURL }
func (b *base) Flags() Flags           { return b.flags }
func (b *base) Module() Module         { return b.module }
func (b *base) Context() Context       { return b.pctx }

func (b *base) prepare(
	ctx context.Context,
	factory ContextFactory,
	shared Context,
	code []byte,
) error {
	if b.prepared {
		return nil
	}

	pctx := shared
	owns := false
	if pctx == nil {
		if factory == nil {
			return fmt.Errorf("%w: no context factory for %s", ErrParse, b.name)
		}
		created, err := factory.NewContext(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrParse, err)
		}
		pctx, owns = created, true
	}

	mod, err := pctx.ParseModule(ctx, b.name, code)
	if err != nil {
		if owns {
			err = errors.Join(err, pctx.Close(ctx))
		}
		return fmt.Errorf("%w: %s: %w", ErrParse, b.name, err)
	}

	b.module, b.pctx, b.ownsCtx, b.prepared = mod, pctx, owns, true
	return nil
}

func (b *base) Close(ctx context.Context) error {
	if !b.ownsCtx || b.pctx == nil {
		return nil
	}
	b.ownsCtx = false
	return b.pctx.Close(ctx)
}
