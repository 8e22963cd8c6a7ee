package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"epcsync/internal/domain"
)

// MockSubmitter is a mock implementation of port.Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, record *domain.CatalogRecord) (*domain.SubmissionOutcome, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmissionOutcome), args.Error(1)
}

// MockTokenSource is a mock implementation of port.TokenSource.
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenSource) Invalidate() {
	m.Called()
}
