package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-fsm"
	"github.com/robbyt/go-loglater"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/cache"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/internal/helpers"
)

// Script is one compilation unit: up to two sources, a lifecycle state that moves once from
// StateUnknown to StateCompiled or StateCached, and the backend serving metadata queries
// afterwards. A Script is not safe for concurrent use.
type Script struct {
	id        uuid.UUID
	createdAt time.Time

	compiler   Compiler
	cfg        *config
	serializer cache.Serializer

	logger       *slog.Logger
	logCollector *loglater.LogCollector
	fsm          *fsm.Machine

	sources    [slotCount]source.Info
	errCode    ErrorCode
	objectKind ObjectKind

	cacheDir string
	cacheKey string
	resolver SymbolResolver

	// active is nil until the state leaves StateUnknown, then either a *compiledBackend or a
	// *cache.Backend.
	active artifact.Backend
	// exe is the runnable result of either path, nil when nothing was loaded.
	exe Executable

	contextSlotNotAvail bool
}

// compiledBackend serves queries after a compile attempt. After a failed compile it answers
// every query with an empty result and keeps the diagnostic.
type compiledBackend struct {
	artifact.Backend
	exe        Executable
	diagnostic string
}

func newCompiledBackend() *compiledBackend {
	return &compiledBackend{Backend: artifact.NewTable(nil, artifact.Metadata{})}
}

// New creates a Script that compiles with the given compiler.
func New(compiler Compiler, opts ...Option) (*Script, error) {
	if compiler == nil {
		return nil, fmt.Errorf("%w: compiler is nil", ErrCompiler)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	handler, _ := helpers.SetupLogger(cfg.handler, "script", "")
	id := uuid.Must(uuid.NewV6())

	machine, err := newStateMachine(handler)
	if err != nil {
		return nil, err
	}

	serializer := cfg.serializer
	if serializer == nil {
		codec, err := cache.NewCodec(handler)
		if err != nil {
			return nil, err
		}
		serializer = codec
	}

	logCollector := loglater.NewLogCollector(handler)
	logger := slog.New(logCollector).WithGroup("Script").With(
		"id", id,
		"machine", compiler.Machine(),
	)

	s := &Script{
		id:           id,
		createdAt:    time.Now(),
		compiler:     compiler,
		cfg:          cfg,
		serializer:   serializer,
		logger:       logger,
		logCollector: logCollector,
		fsm:          machine,
	}
	s.logger.Debug("Script created")
	return s, nil
}

func (s *Script) String() string {
	return fmt.Sprintf("Script{ID: %s, State: %s, Object: %s}", s.id, s.State(), s.objectKind)
}

// ID returns the instance identifier.
func (s *Script) ID() uuid.UUID { return s.id }

// CreatedAt returns when the Script was created.
func (s *Script) CreatedAt() time.Time { return s.createdAt }

// State returns the lifecycle state.
func (s *Script) State() State { return State(s.fsm.GetState()) }

// ErrorCode returns the classification of the last failing call. It is not reset by later
// successful calls.
func (s *Script) ErrorCode() ErrorCode { return s.errCode }

// ObjectKind returns the shape of the artifact last produced.
func (s *Script) ObjectKind() ObjectKind { return s.objectKind }

// IsContextSlotNotAvail reports whether the last cache load was rejected because the entry
// belongs to a context slot this process cannot use.
func (s *Script) IsContextSlotNotAvail() bool { return s.contextSlotNotAvail }

// PlayLogs replays every record this Script has logged into the handler.
func (s *Script) PlayLogs(handler slog.Handler) error {
	return s.logCollector.PlayLogs(handler)
}

// fail records the error code and returns an error wrapping its sentinel.
func (s *Script) fail(code ErrorCode, op string, cause error) error {
	s.errCode = code
	err := fmt.Errorf("%w: %s", sentinelFor(code), op)
	if cause != nil {
		err = fmt.Errorf("%w: %s: %w", sentinelFor(code), op, cause)
	}
	s.logger.Error("Operation failed", "op", op, "code", code, "error", err)
	return err
}

func (s *Script) requireUnknown(op string) error {
	if state := s.State(); state != StateUnknown {
		return s.fail(ErrorInvalidOperation, op, fmt.Errorf("script is %s", state))
	}
	return nil
}

// AddSourceBuffer registers a named in-memory source in a slot.
func (s *Script) AddSourceBuffer(slot int, name string, code []byte, flags source.Flags) error {
	return s.addSource("AddSourceBuffer", slot, func() (source.Info, error) {
		return source.NewFromBuffer(name, code, flags)
	})
}

// AddSourceModule registers a module parsed by the caller in a slot.
func (s *Script) AddSourceModule(slot int, mod source.Module, flags source.Flags) error {
	return s.addSource("AddSourceModule", slot, func() (source.Info, error) {
		return source.NewFromModule(mod, flags)
	})
}

// AddSourceFile registers the file at path in a slot. The file must exist.
func (s *Script) AddSourceFile(slot int, path string, flags source.Flags) error {
	return s.addSource("AddSourceFile", slot, func() (source.Info, error) {
		return source.NewFromFile(path, flags)
	})
}

// addSource stores a new source. A slot may be set again while the script is still in
// StateUnknown; the last write wins.
func (s *Script) addSource(op string, slot int, build func() (source.Info, error)) error {
	if err := s.requireUnknown(op); err != nil {
		return err
	}
	if slot < 0 || slot >= slotCount {
		return s.fail(ErrorInvalidArgument, op, fmt.Errorf("slot %d out of range", slot))
	}

	info, err := build()
	if err != nil {
		code := ErrorInvalidArgument
		if errors.Is(err, source.ErrSourceTooLarge) {
			code = ErrorOutOfMemory
		}
		return s.fail(code, op, err)
	}

	if prev := s.sources[slot]; prev != nil {
		s.logger.Warn("Replacing source", "slot", slot, "previous", prev.Name(), "source", info.Name())
	}
	s.sources[slot] = info
	s.logger.Debug("Source added", "slot", slot, "source", info.GetSourceURL().String())
	return nil
}

// Executable returns the executable produced by a successful compile or rebuilt from the
// cache entry. Failed compiles have none.
func (s *Script) Executable() Executable { return s.exe }

// Source returns the source in a slot, or nil.
func (s *Script) Source(slot int) source.Info {
	if slot < 0 || slot >= slotCount {
		return nil
	}
	return s.sources[slot]
}

// RegisterSymbolCallback sets the resolver used for external symbols. After the script has
// left StateUnknown the call reports ErrInvalidOperation, but the resolver is stored anyway.
func (s *Script) RegisterSymbolCallback(resolver SymbolResolver) error {
	s.resolver = resolver
	return s.requireUnknown("RegisterSymbolCallback")
}

// Close releases the compiled executable and any parsing contexts owned by the sources.
func (s *Script) Close(ctx context.Context) error {
	var errs []error
	if s.exe != nil {
		errs = append(errs, s.exe.Close(ctx))
		s.exe = nil
	}
	if cb, ok := s.active.(*compiledBackend); ok {
		cb.exe = nil
	}
	// library sources share the main context, so they are closed first
	for slot := slotCount - 1; slot >= 0; slot-- {
		if src := s.sources[slot]; src != nil {
			errs = append(errs, src.Close(ctx))
		}
	}
	return errors.Join(errs...)
}
