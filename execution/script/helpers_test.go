package script

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/debugger"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script/source"
	"github.com/robbyt/go-jitscript/internal/helpers"
	machineTypes "github.com/robbyt/go-jitscript/machines/types"
)

// rawModule is a module holding unparsed bytes.
type rawModule struct {
	name string
	code []byte
}

func (m rawModule) Name() string  { return m.name }
func (m rawModule) Bytes() []byte { return m.code }

// fakeContext parses anything that does not start with "bad".
type fakeContext struct{}

func (fakeContext) ParseModule(_ context.Context, name string, code []byte) (source.Module, error) {
	if bytes.HasPrefix(code, []byte("bad")) {
		return nil, errors.New("invalid bitcode signature")
	}
	return rawModule{name: name, code: code}, nil
}

func (fakeContext) Close(context.Context) error { return nil }

func testMetadata() artifact.Metadata {
	return artifact.Metadata{
		ExportVars: []artifact.Symbol{
			{Name: "gCount", Addr: artifact.Address(0, artifact.KindGlobal, 0)},
			{Name: "gAlloc", Addr: artifact.Address(0, artifact.KindGlobal, 1)},
		},
		ExportFuncs: []artifact.Symbol{
			{Name: "root", Addr: artifact.Address(0, artifact.KindFunc, 3)},
		},
		ExportForEach: []artifact.Symbol{
			{Name: "root", Addr: artifact.Address(0, artifact.KindFunc, 3)},
		},
		Pragmas: []artifact.Pragma{{Key: "version", Value: "1"}},
		Funcs: []artifact.FuncInfo{
			{Name: "root", Addr: artifact.Address(0, artifact.KindFunc, 3), Size: 42},
		},
		ObjectSlots: []uint32{1},
	}
}

type testEnv struct {
	compiler  *MockCompiler
	registrar *debugger.MockRegistrar
	exe       *MockExecutable
	loaded    *MockExecutable
}

// newTestEnv returns a compiler that always succeeds with the test metadata.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvFor(t, machineTypes.Wasm)
}

func newTestEnvFor(t *testing.T, machine machineTypes.Type) *testEnv {
	t.Helper()
	return newTestEnvLoading(t, machine, nil)
}

// newTestEnvLoading is newTestEnvFor with cache loads failing with loadErr when it is set.
func newTestEnvLoading(t *testing.T, machine machineTypes.Type, loadErr error) *testEnv {
	t.Helper()
	env := &testEnv{
		compiler:  new(MockCompiler),
		registrar: new(debugger.MockRegistrar),
		exe:       NewMockExecutable([]byte("\x00asm-image"), testMetadata()),
		loaded:    NewMockExecutable([]byte("\x00asm-image"), testMetadata()),
	}
	env.compiler.On("Machine").Return(machine).Maybe()
	env.compiler.On("RuntimeDependency").Return(
		dependency.NewEntry(dependency.KindLibrary, "runtime", helpers.DigestBytes([]byte("rt-v1"))),
	).Maybe()
	env.compiler.On("NewContext", mock.Anything).Return(fakeContext{}, nil).Maybe()
	env.compiler.On("Compile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(env.exe, nil).Maybe()
	if loadErr != nil {
		env.compiler.On("Load", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, loadErr).Maybe()
	} else {
		env.compiler.On("Load", mock.Anything, mock.Anything, mock.Anything).
			Return(env.loaded, nil).Maybe()
	}
	env.registrar.On("Register", mock.Anything).Return().Maybe()
	return env
}

func (env *testEnv) newScript(t *testing.T, opts ...Option) *Script {
	t.Helper()
	base := []Option{
		WithLogHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		WithDebugRegistrar(env.registrar),
		WithDriverDependency(dependency.NewEntry(
			dependency.KindLibrary, dependency.DriverName, helpers.DigestBytes([]byte("driver-test")),
		)),
	}
	s, err := New(env.compiler, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func (env *testEnv) compileCalls() int { return env.calls("Compile") }

func (env *testEnv) calls(method string) int {
	n := 0
	for _, call := range env.compiler.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}
