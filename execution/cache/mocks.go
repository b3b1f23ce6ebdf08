package cache

import (
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/robbyt/go-jitscript/execution/artifact"
	"github.com/robbyt/go-jitscript/execution/dependency"
)

// MockSerializer is a mock implementation of Serializer.
type MockSerializer struct {
	mock.Mock
}

func (m *MockSerializer) Read(
	obj, info io.Reader,
	slot string,
	deps *dependency.Set,
) (*Backend, bool, error) {
	args := m.Called(obj, info, slot, deps)
	b, _ := args.Get(0).(*Backend)
	return b, args.Bool(1), args.Error(2)
}

func (m *MockSerializer) Write(
	obj, info io.Writer,
	slot string,
	deps *dependency.Set,
	backend artifact.Backend,
	threadable bool,
) error {
	args := m.Called(obj, info, slot, deps, backend, threadable)
	return args.Error(0)
}
