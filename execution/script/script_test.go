package script

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-jitscript/execution/script/source"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil compiler", func(t *testing.T) {
		t.Parallel()
		s, err := New(nil)
		require.ErrorIs(t, err, ErrCompiler)
		assert.Nil(t, s)
	})

	t.Run("invalid option", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		_, err := New(env.compiler, WithLogHandler(nil))
		require.Error(t, err)
		_, err = New(env.compiler, WithCacheDisabled(nil))
		require.Error(t, err)
		_, err = New(env.compiler, WithRelocModel(RelocModel(99)))
		require.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.newScript(t)
		assert.Equal(t, StateUnknown, s.State())
		assert.Equal(t, ErrorNone, s.ErrorCode())
		assert.Equal(t, ObjectUnset, s.ObjectKind())
		assert.NotEqual(t, uuid.Nil, s.ID())
		assert.False(t, s.CreatedAt().IsZero())
		assert.Contains(t, s.String(), "unknown")
	})

	t.Run("unique ids", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		assert.NotEqual(t, env.newScript(t).ID(), env.newScript(t).ID())
	})
}

func TestAddSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "main.bc")
	require.NoError(t, os.WriteFile(path, []byte("main"), 0o600))

	tests := []struct {
		name     string
		add      func(s *Script) error
		wantErr  error
		wantCode ErrorCode
	}{
		{
			name: "buffer",
			add:  func(s *Script) error { return s.AddSourceBuffer(SlotMain, "main", []byte("x"), 0) },
		},
		{
			name: "file",
			add:  func(s *Script) error { return s.AddSourceFile(SlotLibrary, path, 0) },
		},
		{
			name: "module",
			add: func(s *Script) error {
				return s.AddSourceModule(SlotMain, rawModule{name: "m", code: []byte("m")}, 0)
			},
		},
		{
			name:     "empty name",
			add:      func(s *Script) error { return s.AddSourceBuffer(SlotMain, "", []byte("x"), 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
		{
			name:     "nil buffer",
			add:      func(s *Script) error { return s.AddSourceBuffer(SlotMain, "main", nil, 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
		{
			name:     "nil module",
			add:      func(s *Script) error { return s.AddSourceModule(SlotMain, nil, 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
		{
			name:     "missing file",
			add:      func(s *Script) error { return s.AddSourceFile(SlotMain, filepath.Join(dir, "nope"), 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
		{
			name:     "slot out of range",
			add:      func(s *Script) error { return s.AddSourceBuffer(2, "main", []byte("x"), 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
		{
			name:     "negative slot",
			add:      func(s *Script) error { return s.AddSourceBuffer(-1, "main", []byte("x"), 0) },
			wantErr:  ErrInvalidArgument,
			wantCode: ErrorInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			s := env.newScript(t)

			err := tt.add(s)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantCode, s.ErrorCode())
			} else {
				require.NoError(t, err)
				assert.Equal(t, ErrorNone, s.ErrorCode())
			}
			assert.Equal(t, StateUnknown, s.State())
		})
	}
}

func TestAddSourceOverwrite(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.newScript(t)

	require.NoError(t, s.AddSourceBuffer(SlotMain, "first", []byte("1"), 0))
	require.NoError(t, s.AddSourceBuffer(SlotMain, "second", []byte("2"), 0))
	assert.Equal(t, "second", s.Source(SlotMain).Name())
	assert.Nil(t, s.Source(SlotLibrary))
	assert.Nil(t, s.Source(5))
}

func TestAddSourceAfterPrepare(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.newScript(t)

	require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
	require.NoError(t, s.PrepareExecutable(t.Context(), "", "", 0))

	err := s.AddSourceBuffer(SlotLibrary, "lib", []byte("lib"), 0)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, ErrorInvalidOperation, s.ErrorCode())
	assert.Nil(t, s.Source(SlotLibrary))

	err = s.AddSourceBuffer(SlotMain, "other", []byte("other"), 0)
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "main", s.Source(SlotMain).Name())
}

func TestRegisterSymbolCallback(t *testing.T) {
	t.Parallel()

	t.Run("before prepare", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.newScript(t)
		resolver := new(MockSymbolResolver)

		require.NoError(t, s.RegisterSymbolCallback(resolver))
		require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
		require.NoError(t, s.PrepareExecutable(t.Context(), "", "", 0))

		env.compiler.AssertCalled(t, "Compile", mock.Anything, mock.Anything, mock.Anything,
			mock.MatchedBy(func(opts CompileOptions) bool {
				return opts.Resolver == resolver && opts.LoadAfterCompile
			}))
	})

	t.Run("after prepare is stored but fails", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.newScript(t)
		require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
		require.NoError(t, s.PrepareExecutable(t.Context(), "", "", 0))

		resolver := new(MockSymbolResolver)
		err := s.RegisterSymbolCallback(resolver)
		require.ErrorIs(t, err, ErrInvalidOperation)
		assert.Equal(t, ErrorInvalidOperation, s.ErrorCode())
		assert.Same(t, resolver, s.resolver)
	})
}

func TestErrorCodeIsSticky(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.newScript(t)

	require.Error(t, s.AddSourceBuffer(SlotMain, "", []byte("x"), 0))
	require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("x"), 0))
	assert.Equal(t, ErrorInvalidArgument, s.ErrorCode())
}

func TestEnvCacheDisabled(t *testing.T) {
	const name = "JITSCRIPT_TEST_NOCACHE"
	tests := []struct {
		value string
		set   bool
		want  bool
	}{
		{set: false, want: false},
		{value: "1", set: true, want: true},
		{value: "true", set: true, want: true},
		{value: "0", set: true, want: false},
		{value: "garbage", set: true, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if tt.set {
				t.Setenv(name, tt.value)
			}
			assert.Equal(t, tt.want, EnvCacheDisabled(name)())
		})
	}
}

func TestPlayLogs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.newScript(t)
	require.Error(t, s.AddSourceBuffer(SlotMain, "", nil, 0))

	var buf bytes.Buffer
	require.NoError(t, s.PlayLogs(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	assert.Contains(t, buf.String(), "Operation failed")
	assert.Contains(t, buf.String(), "AddSourceBuffer")
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("releases the executable once", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.newScript(t)
		require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
		require.NoError(t, s.PrepareExecutable(t.Context(), "", "", 0))

		require.NoError(t, s.Close(context.Background()))
		require.NoError(t, s.Close(context.Background()))
		env.exe.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("close error", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.exe.ExpectedCalls = nil
		env.exe.On("Close", mock.Anything).Return(errors.New("busy"))
		s := env.newScript(t)
		require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
		require.NoError(t, s.PrepareExecutable(t.Context(), "", "", 0))

		require.ErrorContains(t, s.Close(context.Background()), "busy")
	})

	t.Run("releases the executable loaded from cache", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		dir := t.TempDir()
		for range 2 {
			s := env.newScript(t)
			require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), 0))
			require.NoError(t, s.PrepareExecutable(t.Context(), dir, "key", 0))
			require.NoError(t, s.Close(context.Background()))
		}
		env.exe.AssertNumberOfCalls(t, "Close", 1)
		env.loaded.AssertNumberOfCalls(t, "Close", 1)
	})

	t.Run("unprepared", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.newScript(t)
		require.NoError(t, s.AddSourceBuffer(SlotMain, "main", []byte("main"), source.FlagSkipDependencyHash))
		require.NoError(t, s.Close(context.Background()))
	})
}
