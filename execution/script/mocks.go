package script

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
	"github.com/robbyt/go-jitscript/execution/script/source"
	machineTypes "github.com/robbyt/go-jitscript/machines/types"
)

// MockCompiler is a mock implementation of the Compiler interface.
type MockCompiler struct {
	mock.Mock
}

func (m *MockCompiler) NewContext(ctx context.Context) (source.Context, error) {
	args := m.Called(ctx)
	pctx, ok := args.Get(0).(source.Context)
	if !ok {
		return nil, args.Error(1)
	}
	return pctx, args.Error(1)
}

func (m *MockCompiler) Compile(
	ctx context.Context,
	main, lib source.Module,
	opts CompileOptions,
) (Executable, error) {
	args := m.Called(ctx, main, lib, opts)
	exe, ok := args.Get(0).(Executable)
	if !ok {
		return nil, args.Error(1)
	}
	return exe, args.Error(1)
}

func (m *MockCompiler) Load(
	ctx context.Context,
	cached artifact.Backend,
	opts CompileOptions,
) (Executable, error) {
	args := m.Called(ctx, cached, opts)
	exe, ok := args.Get(0).(Executable)
	if !ok {
		return nil, args.Error(1)
	}
	return exe, args.Error(1)
}

func (m *MockCompiler) RuntimeDependency() dependency.Entry {
	args := m.Called()
	return args.Get(0).(dependency.Entry)
}

func (m *MockCompiler) Machine() machineTypes.Type {
	args := m.Called()
	return args.Get(0).(machineTypes.Type)
}

// MockExecutable is an Executable backed by a metadata table. Close is mocked.
type MockExecutable struct {
	*artifact.Table
	mock.Mock
}

// NewMockExecutable creates an executable whose Close succeeds.
func NewMockExecutable(image []byte, meta artifact.Metadata) *MockExecutable {
	m := &MockExecutable{Table: artifact.NewTable(image, meta)}
	m.On("Close", mock.Anything).Return(nil).Maybe()
	return m
}

func (m *MockExecutable) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSymbolResolver is a mock implementation of SymbolResolver.
type MockSymbolResolver struct {
	mock.Mock
}

func (m *MockSymbolResolver) ResolveSymbol(name string) (uint64, bool) {
	args := m.Called(name)
	return args.Get(0).(uint64), args.Bool(1)
}

// MockThreadableResolver is a SymbolResolver that also implements ThreadableRuntime.
type MockThreadableResolver struct {
	MockSymbolResolver
}

func (m *MockThreadableResolver) IsThreadable() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockThreadableResolver) ClearThreadable() {
	m.Called()
}
