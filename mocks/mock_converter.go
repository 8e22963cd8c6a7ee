package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockConverter is a mock implementation of port.Converter.
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}
