package source

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockModule implements Module for testing.
type MockModule struct {
	mock.Mock
}

func (m *MockModule) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockModule) Bytes() []byte {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

// NewMockModule returns a module mock answering Name and Bytes with the given values.
func NewMockModule(name string, code []byte) *MockModule {
	m := new(MockModule)
	m.On("Name").Return(name).Maybe()
	m.On("Bytes").Return(code).Maybe()
	return m
}

// MockContext implements Context for testing.
type MockContext struct {
	mock.Mock
}

func (m *MockContext) ParseModule(ctx context.Context, name string, code []byte) (Module, error) {
	args := m.Called(ctx, name, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Module), args.Error(1)
}

func (m *MockContext) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockContextFactory implements ContextFactory for testing.
type MockContextFactory struct {
	mock.Mock
}

func (m *MockContextFactory) NewContext(ctx context.Context) (Context, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Context), args.Error(1)
}
