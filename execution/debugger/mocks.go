package debugger

import "github.com/stretchr/testify/mock"

// MockRegistrar implements Registrar for testing.
type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) Register(image []byte) {
	m.Called(image)
}
