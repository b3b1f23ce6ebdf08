package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/robbyt/go-jitscript/execution/cache"
	"github.com/robbyt/go-jitscript/execution/dependency"
)

// isCacheable consults the operator override. It is called once per load decision.
func (s *Script) isCacheable() bool {
	if s.cfg.cacheOff() {
		s.logger.Debug("Cache disabled by override")
		return false
	}
	return s.cacheDir != "" && s.cacheKey != ""
}

func (s *Script) contextSlot() string {
	return cache.ContextSlot(s.compiler.Machine().String())
}

// Dependencies builds the set that validates cache entries for this script: the driver, the
// compiler runtime, any extra dependencies and every source that contributes one.
func (s *Script) Dependencies() *dependency.Set {
	deps := dependency.NewSet(s.cfg.driver, s.compiler.RuntimeDependency())
	for _, e := range s.cfg.extraDeps {
		deps.Add(e)
	}
	for _, src := range s.sources {
		if src != nil {
			src.IntroDependency(deps)
		}
	}
	return deps
}

// readCache opens both files of the entry and runs the serializer over them. Missing or
// unreadable files are reported as fs errors.
func (s *Script) readCache(dir, key string) (*cache.Backend, bool, error) {
	objPath, infoPath := cache.Paths(dir, key)

	objFile, err := os.Open(objPath)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = objFile.Close() }()

	infoFile, err := os.Open(infoPath)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = infoFile.Close() }()

	return s.serializer.Read(objFile, infoFile, s.contextSlot(), s.Dependencies())
}

// tryLoadCache adopts a valid cache entry and, unless loading is disabled, asks the compiler
// to make it runnable with the current resolver. Any failure leaves the script in StateUnknown
// so the caller can compile instead.
func (s *Script) tryLoadCache(ctx context.Context) bool {
	logger := s.logger.With("cacheDir", s.cacheDir, "key", s.cacheKey)

	backend, threadable, err := s.readCache(s.cacheDir, s.cacheKey)
	if err != nil {
		s.contextSlotNotAvail = errors.Is(err, cache.ErrContextSlotNotAvail)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("Cache miss")
		} else {
			logger.Info("Cache entry rejected", "error", err)
		}
		return false
	}

	var exe Executable
	if opts := s.cfg.compileFlags; opts.LoadAfterCompile {
		opts.Resolver = s.resolver
		if exe, err = s.compiler.Load(ctx, backend, opts); err != nil {
			logger.Info("Cache entry could not be loaded", "error", err)
			return false
		}
	}

	if err := s.fsm.Transition(string(StateCached)); err != nil {
		logger.Error("Unable to adopt the cache entry", "error", err)
		if exe != nil {
			_ = exe.Close(ctx)
		}
		return false
	}
	s.active = backend
	s.exe = exe

	if !threadable {
		if hook, ok := s.resolver.(ThreadableRuntime); ok {
			hook.ClearThreadable()
		}
	}

	logger.Debug("Loaded from cache", "imageSize", len(backend.Image()), "runnable", exe != nil)
	return true
}

// CheckCache reports whether a valid entry exists for (cacheDir, cacheKey) without adopting
// it. The state of the script does not change.
func (s *Script) CheckCache(cacheDir, cacheKey string) bool {
	if s.cfg.cacheOff() || cacheDir == "" || cacheKey == "" {
		return false
	}
	_, _, err := s.readCache(cacheDir, cacheKey)
	if err != nil {
		s.contextSlotNotAvail = errors.Is(err, cache.ErrContextSlotNotAvail)
		s.logger.Debug("Cache check failed", "key", cacheKey, "error", err)
		return false
	}
	return true
}

// writeCache persists the compiled image. Existing files are unlinked before new ones are
// created: a reader that still has the old files open or mapped keeps seeing the complete old
// content. On failure the partial files are truncated and removed.
func (s *Script) writeCache() error {
	cb, ok := s.active.(*compiledBackend)
	if s.State() != StateCompiled || !ok || cb.exe == nil {
		return fmt.Errorf("%w: nothing compiled to cache", ErrInvalidOperation)
	}

	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	objPath, infoPath := cache.Paths(s.cacheDir, s.cacheKey)
	s.unlink(objPath)
	s.unlink(infoPath)

	objFile, err := os.OpenFile(objPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", objPath, err)
	}
	infoFile, err := os.OpenFile(infoPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.discard(objFile, objPath)
		return fmt.Errorf("opening %s: %w", infoPath, err)
	}

	threadable := false
	if hook, ok := s.resolver.(ThreadableRuntime); ok {
		threadable = hook.IsThreadable()
	}

	err = s.serializer.Write(objFile, infoFile, s.contextSlot(), s.Dependencies(), cb.exe, threadable)
	if err != nil {
		s.discard(objFile, objPath)
		s.discard(infoFile, infoPath)
		return err
	}

	if err := errors.Join(objFile.Close(), infoFile.Close()); err != nil {
		s.unlink(objPath)
		s.unlink(infoPath)
		return fmt.Errorf("closing cache files: %w", err)
	}

	s.logger.Debug("Cache entry written", "object", objPath, "info", infoPath)
	return nil
}

// unlink removes path, logging failures other than a missing file.
func (s *Script) unlink(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Unable to remove the cache file", "path", path, "error", err)
	}
}

// discard truncates, closes and removes a partially written file.
func (s *Script) discard(f *os.File, path string) {
	if err := f.Truncate(0); err != nil {
		s.logger.Warn("Unable to truncate the invalid cache file", "path", path, "error", err)
	}
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		s.logger.Error("Unable to remove the invalid cache file", "path", path, "error", err)
	}
}
