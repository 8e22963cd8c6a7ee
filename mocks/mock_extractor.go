package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epcsync/internal/domain"
)

// MockExtractor is a mock implementation of port.Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractor) Validate(record *domain.CatalogRecord) []string {
	args := m.Called(record)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}
