package script

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/robbyt/go-jitscript/execution/script/source"
)

// PrepareFlags alter PrepareExecutable.
type PrepareFlags uint32

const (
	// PrepareSkipCacheLoad compiles even when a valid cache entry exists.
	PrepareSkipCacheLoad PrepareFlags = 1 << iota
	// PrepareSkipCacheStore does not write a cache entry after compiling.
	PrepareSkipCacheStore
)

// Has reports whether all bits of f2 are set.
func (f PrepareFlags) Has(f2 PrepareFlags) bool { return f&f2 == f2 }

// PrepareExecutable loads the script from the cache entry (cacheDir, cacheKey) when it is
// still valid, and compiles it otherwise. A fresh compile is written back to the cache; a
// failed write is logged and does not fail the call. Empty cacheDir or cacheKey disable the
// cache for this script.
//
// Compiler failures are returned wrapped in ErrCompiler. The script then stays in
// StateCompiled with the diagnostic available from CompilerErrorMessage and cannot be
// prepared again.
func (s *Script) PrepareExecutable(
	ctx context.Context,
	cacheDir, cacheKey string,
	flags PrepareFlags,
) error {
	if err := s.requireUnknown("PrepareExecutable"); err != nil {
		return err
	}
	s.cacheDir, s.cacheKey = cacheDir, cacheKey
	cacheable := s.isCacheable()

	loaded := cacheable && !flags.Has(PrepareSkipCacheLoad) && s.tryLoadCache(ctx)
	if !loaded {
		if err := s.internalCompile(ctx, s.cfg.compileFlags); err != nil {
			return err
		}
		if cacheable && !flags.Has(PrepareSkipCacheStore) {
			if err := s.writeCache(); err != nil {
				s.logger.Warn("Failed to write the cache", "key", s.cacheKey, "error", err)
			}
		}
	}

	s.cfg.registrar.Register(s.active.Image())
	s.objectKind = ObjectExecutable
	s.logger.Info("Script prepared", "state", s.State(), "cached", loaded)
	return nil
}

// PrepareRelocatable compiles without loading and writes the code image to outputPath. The
// cache is not consulted. A partially written file is removed on failure.
func (s *Script) PrepareRelocatable(
	ctx context.Context,
	outputPath string,
	model RelocModel,
	_ PrepareFlags,
) error {
	const op = "PrepareRelocatable"
	if err := s.requireUnknown(op); err != nil {
		return err
	}
	if outputPath == "" {
		return s.fail(ErrorInvalidArgument, op, errors.New("output path is empty"))
	}

	opts := CompileOptions{RelocModel: model, LoadAfterCompile: false}
	if err := s.internalCompile(ctx, opts); err != nil {
		return err
	}

	if err := s.writeObject(outputPath, s.active.Image()); err != nil {
		s.logger.Error("Unable to write object", "path", outputPath, "error", err)
		return err
	}

	s.objectKind = ObjectRelocatable
	s.logger.Info("Relocatable object written", "path", outputPath, "reloc", model)
	return nil
}

// internalCompile moves the script to StateCompiled before compiling, so a failed compile
// leaves the diagnostic queryable.
func (s *Script) internalCompile(ctx context.Context, opts CompileOptions) error {
	if err := s.fsm.Transition(string(StateCompiled)); err != nil {
		return s.fail(ErrorInvalidOperation, "compile", err)
	}
	cb := newCompiledBackend()
	s.active = cb

	failed := func(err error) error {
		cb.diagnostic = err.Error()
		s.logger.Error("Compile failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCompiler, err)
	}

	mainSrc := s.sources[SlotMain]
	if mainSrc == nil {
		return failed(ErrNoMainSource)
	}
	if err := mainSrc.PrepareModule(ctx, s.compiler, nil); err != nil {
		return failed(fmt.Errorf("unable to set up source module: %w", err))
	}

	var libModule source.Module
	if libSrc := s.sources[SlotLibrary]; libSrc != nil {
		if err := libSrc.PrepareModule(ctx, s.compiler, mainSrc.Context()); err != nil {
			return failed(fmt.Errorf("unable to set up library module: %w", err))
		}
		libModule = libSrc.Module()
	}

	opts.Resolver = s.resolver
	exe, err := s.compiler.Compile(ctx, mainSrc.Module(), libModule, opts)
	if err != nil {
		return failed(err)
	}
	if exe == nil {
		return failed(errors.New("compiler returned no executable"))
	}

	cb.exe, cb.Backend = exe, exe
	s.exe = exe
	s.logger.Debug("Compiled",
		"imageSize", len(exe.Image()),
		"exportFuncs", len(exe.ExportFuncs()),
		"loaded", opts.LoadAfterCompile)
	return nil
}

// CompilerErrorMessage returns the diagnostic of a failed compile. It is only available in
// StateCompiled; an empty message with ok set means the compile succeeded.
func (s *Script) CompilerErrorMessage() (msg string, ok bool) {
	cb, isCompiled := s.active.(*compiledBackend)
	if s.State() != StateCompiled || !isCompiled {
		s.errCode = ErrorInvalidOperation
		return "", false
	}
	return cb.diagnostic, true
}

// writeObject writes image to path and removes the file on any failure.
func (s *Script) writeObject(path string, image []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteObject, err)
	}

	_, werr := f.Write(image)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			s.logger.Error("Unable to remove the partial object", "path", path, "error", rerr)
		}
		return fmt.Errorf("%w: %w", ErrWriteObject, err)
	}
	return nil
}
